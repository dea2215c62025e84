// Copyright 2025 The OsptBWT Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

// Package osptbwt builds the run-length encoded Burrows-Wheeler transform
// of a byte stream online: after every appended character the structure
// holds the RLBWT of everything consumed so far. Extend places each
// character at the exact position given by LF mapping from the implicit
// end marker. SAPExtend instead tracks the interval of BWT rows whose
// suffixes tie with the pending character's context and, within it, picks
// the placement that keeps the run count low — merging into an adjacent
// equal-character run in preference to splitting a foreign one.
//
// The structure consumed is a dynamic run-length encoded string
// (package rle); the builder adds the implicit end marker, the LF
// discipline around it, interval tracking, and inversion.
package osptbwt

import (
	"bufio"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/xiaoYu0103/osptbwt/rle"
)

// Builder is an online RLBWT builder. It is not safe for concurrent use;
// construction is inherently sequential because every insertion depends on
// a rank over the previous state.
type Builder struct {
	drle  *rle.Runs
	opts  *Options
	emPos uint64
	numEM uint64
	sapS  uint64
	sapE  uint64
}

// New returns an empty builder. opts may be nil.
func New(opts *Options) *Builder {
	return &Builder{
		drle:  rle.New(),
		opts:  opts.EnsureDefaults(),
		numEM: 1,
	}
}

// EndMarker returns the configured end marker byte.
func (b *Builder) EndMarker() byte { return b.opts.EndMarker }

// EndMarkerPos returns the current row of the implicit end marker.
func (b *Builder) EndMarkerPos() uint64 { return b.emPos }

// LenWithEndMarker returns the length of the BWT including the implicit
// end marker.
func (b *Builder) LenWithEndMarker() uint64 { return b.drle.Len() + 1 }

// NumRuns returns the current number of stored runs (the implicit end
// marker is not counted).
func (b *Builder) NumRuns() uint64 { return b.drle.NumRuns() }

// SAPInterval returns the current same-as-previous interval tracked by
// SAPExtend, as a closed range of insertion rows.
func (b *Builder) SAPInterval() (uint64, uint64) { return b.sapS, b.sapE }

// Extend appends ch, inserting it at the implicit end marker's row and
// advancing the marker by LF. Appending the end marker byte itself starts
// a new sequence: the marker returns to row 0, below every stored marker.
func (b *Builder) Extend(ch byte) {
	id, rel := b.drle.InsertRun(b.emPos, ch, 1)
	if ch == b.opts.EndMarker {
		b.emPos = 0
		return
	}
	b.emPos = b.drle.RankRun(ch, id, rel, true)
}

// SAPExtend appends ch with the run-minimising placement. When ch already
// occurs inside the tracked interval the insertion merges into its first
// occurrence; otherwise the placement avoids splitting a foreign run where
// the interval's shape allows it. The interval is then advanced by LF on
// both endpoints, or reset to the marker block when ch is the end marker.
func (b *Builder) SAPExtend(ch byte) {
	if b.sapS == b.sapE {
		b.drle.InsertRun(b.sapS, ch, 1)
	} else {
		var sn uint64
		if b.sapS != 0 {
			sn = b.drle.Rank(ch, b.sapS-1, false)
		}
		en := b.drle.Rank(ch, b.clampRow(b.sapE), false)
		if en-sn > 0 {
			pos := b.drle.Select(ch, sn+1)
			b.drle.InsertRun(pos, ch, 1)
		} else {
			b.insertOptimal(ch)
		}
	}

	if ch == b.opts.EndMarker {
		b.numEM++
		b.sapS, b.sapE = 0, b.numEM-1
		return
	}
	if b.sapS == b.sapE {
		t := b.drle.Rank(ch, b.sapS, true)
		b.sapS, b.sapE = t, t
		return
	}
	if b.sapS == 0 {
		// No row precedes the interval; the new start is the first row of
		// ch's F block, offset for the inserted occurrence.
		b.sapS = b.drle.CharStart(ch) + 1
	} else {
		b.sapS = b.drle.Rank(ch, b.sapS-1, true) + 1
	}
	b.sapE = b.drle.Rank(ch, b.sapE, true)
}

// clampRow bounds an interval endpoint to the last existing row. The
// interval addresses insertion rows, which run one past the stored rows.
func (b *Builder) clampRow(pos uint64) uint64 {
	if n := b.drle.Len(); pos >= n {
		return n - 1
	}
	return pos
}

// insertOptimal places ch inside [sapS, sapE] when no occurrence of ch is
// there to merge with. Preference order: extend the run ending just before
// the interval when its character matches; otherwise, when the run at the
// interval start stops short of the interval end, append directly after it
// (no split); otherwise split at the interval start.
func (b *Builder) insertOptimal(ch byte) {
	if b.sapS != 0 {
		id, _ := b.drle.SearchPos(b.sapS - 1)
		if b.drle.RunChar(id) == ch {
			b.drle.ChangeWeight(id, 1)
			return
		}
	}
	id, rel := b.drle.SearchPos(b.sapS)
	if b.sapS-rel+b.drle.RunWeight(id)-1 < b.sapE {
		b.drle.InsertRunAfter(id, ch, 1)
		return
	}
	b.drle.InsertRun(b.sapS, ch, 1)
}

// At returns the BWT character at pos, the end marker at its implicit row.
func (b *Builder) At(pos uint64) byte {
	if pos == b.emPos {
		return b.opts.EndMarker
	}
	if pos > b.emPos {
		pos--
	}
	id, _ := b.drle.SearchPos(pos)
	return b.drle.RunChar(id)
}

// TotalRank returns the rank of ch at pos plus the number of occurrences
// of all smaller characters.
func (b *Builder) TotalRank(ch byte, pos uint64) uint64 {
	if pos > b.emPos {
		pos--
	}
	return b.drle.Rank(ch, pos, true)
}

// LFMap maps a BWT row to the row whose suffix extends it by one character
// to the left.
func (b *Builder) LFMap(pos uint64) uint64 {
	if pos > b.emPos {
		pos--
	}
	id, rel := b.drle.SearchPos(pos)
	ch := b.drle.RunChar(id)
	return b.drle.RankRun(ch, id, rel, true)
}

// LFMapInterval maps the half-open row interval [l, r) for a pattern W to
// the interval for chW. The implicit end marker occupies row 0 of F but is
// not stored, hence the +1 on both bounds.
func (b *Builder) LFMapInterval(l, r uint64, ch byte) (uint64, uint64) {
	if !b.drle.HasChar(ch) || l >= r {
		return 0, 0
	}
	if l > b.emPos {
		l--
	}
	if r > b.emPos {
		r--
	}
	id, rel := b.drle.SearchPos(l)
	lo := b.drle.RankRun(ch, id, rel, true) + 1
	if b.drle.RunChar(id) == ch {
		lo--
	}
	hi := b.drle.Rank(ch, r-1, true) + 1
	return lo, hi
}

// Invert writes the text consumed so far, in the order it was fed, by
// walking LF from the implicit end marker. The walk follows one LF cycle,
// so it recovers a single sequence: streams holding several
// marker-terminated sequences decompose into one cycle each.
func (b *Builder) Invert(w io.Writer) error {
	bw := bufio.NewWriter(w)
	var pos uint64
	for i := uint64(0); i+1 < b.LenWithEndMarker(); i++ {
		if pos > b.emPos {
			pos--
		}
		id, rel := b.drle.SearchPos(pos)
		ch := b.drle.RunChar(id)
		if err := bw.WriteByte(ch); err != nil {
			return errors.Wrap(err, "inverting bwt")
		}
		pos = b.drle.RankRun(ch, id, rel, true)
	}
	return bw.Flush()
}

// WriteBWT serialises the stored BWT as raw bytes in row order, writing
// each run's character weight times. The implicit end marker is not
// written. Runs of byte 0 are substituted per Options.Dollar.
func (b *Builder) WriteBWT(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for id := b.drle.NextRun(0); id != rle.NotFound; id = b.drle.NextRun(id) {
		ch := b.drle.RunChar(id)
		if ch == 0 && b.opts.Dollar != 0 {
			ch = b.opts.Dollar
		}
		for n := b.drle.RunWeight(id); n > 0; n-- {
			if err := bw.WriteByte(ch); err != nil {
				return errors.Wrap(err, "writing bwt")
			}
		}
	}
	return bw.Flush()
}

// CheckDecode replays the inversion against a reference reader and reports
// whether every byte matches.
func (b *Builder) CheckDecode(r io.Reader) (bool, error) {
	br := bufio.NewReader(r)
	var pos uint64
	for i := uint64(0); i+1 < b.LenWithEndMarker(); i++ {
		if pos > b.emPos {
			pos--
		}
		id, rel := b.drle.SearchPos(pos)
		ch := b.drle.RunChar(id)
		ref, err := br.ReadByte()
		if err != nil {
			return false, errors.Wrapf(err, "reference ended at %d", i)
		}
		if ref != ch {
			return false, nil
		}
		pos = b.drle.RankRun(ch, id, rel, true)
	}
	return true, nil
}

// Metrics returns a snapshot of builder and structure counters.
func (b *Builder) Metrics() Metrics {
	return Metrics{
		Len:     b.LenWithEndMarker(),
		EmPos:   b.emPos,
		NumRuns: b.drle.NumRuns(),
		RLE:     b.drle.Metrics(),
	}
}

// ForEachChar visits every stored character in increasing order with its
// number of occurrences.
func (b *Builder) ForEachChar(fn func(ch byte, weight uint64)) {
	b.drle.ForEachChar(fn)
}
