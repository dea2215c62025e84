// Copyright 2025 The OsptBWT Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package rle

import (
	"math"
	"math/bits"

	"github.com/cockroachdb/errors"
)

// Text leaves carry 64-bit labels that are strictly increasing in text
// order, so char-tree entries can be ordered by owner label alone. New
// leaves take the midpoint of their neighbours' labels; when the gap is
// exhausted, an aligned bit-window around the predecessor is widened level
// by level until its occupancy drops below a density schedule, and the
// member labels are redistributed evenly over the window. This is the one
// amortised algorithm in the package: each relabelling touches only the
// window members, and the schedule bounds the amortised work per insert by
// O(log^2 n).

const (
	// labelSpace bounds all labels; the two spare bits keep every window
	// computation inside uint64.
	labelSpace = uint64(1) << 62
	// labelStride is the gap left after the last leaf on append.
	labelStride = uint64(1) << 20

	traCodeMin = 9
	traCodeMax = 15
)

// overflowNum returns the maximum number of labels tolerated in a window
// of size 2^l before the relabelling moves up a level. Larger traCode
// values tolerate denser windows.
func overflowNum(l int, traCode uint8) uint64 {
	e := float64(l*(int(traCode)-1)) / float64(traCode)
	return uint64(math.Pow(2, e))
}

// spreadLabels returns n labels spaced evenly over [base, base+size),
// strictly increasing and strictly above base. Requires n < size.
func spreadLabels(base, size uint64, n int) []uint64 {
	step := size / uint64(n+1)
	out := make([]uint64, n)
	for i := range out {
		out[i] = base + uint64(i+1)*step
	}
	return out
}

// assignLabel gives the freshly split leaf (positioned directly after pred
// in text order) a label between its neighbours, relabelling a window when
// the gap is empty.
func (d *Runs) assignLabel(leaf, pred uint64) {
	lp := d.textAt(pred).label
	next := d.nextTextLeaf(leaf)
	if next == NotFound {
		if lp+labelStride < labelSpace {
			d.textAt(leaf).label = lp + labelStride
			return
		}
	} else if ln := d.textAt(next).label; ln-lp >= 2 {
		d.textAt(leaf).label = lp + (ln-lp)/2
		return
	}
	d.relabel(leaf, pred)
}

// relabel finds the smallest aligned window around pred's label that is
// sparse enough per the density schedule and redistributes all member
// leaves (the new leaf included) evenly inside it.
func (d *Runs) relabel(leaf, pred uint64) {
	// Duplicate the predecessor label so the window walks below treat the
	// new leaf like any other member; it is about to be overwritten.
	d.textAt(leaf).label = d.textAt(pred).label
	lp := d.textAt(pred).label
	for l := 1; l <= 62; l++ {
		size := uint64(1) << l
		base := lp &^ (size - 1)
		end := base + size

		first := pred
		for {
			p := d.prevTextLeaf(first)
			if p == NotFound || d.textAt(p).label < base {
				break
			}
			first = p
		}
		var members []uint64
		for cur := first; cur != NotFound && d.textAt(cur).label < end; cur = d.nextTextLeaf(cur) {
			members = append(members, cur)
		}
		if uint64(len(members)) > overflowNum(l, d.traCode) {
			continue
		}
		for i, lb := range spreadLabels(base, size, len(members)) {
			d.textAt(members[i]).label = lb
		}
		d.metrics.Relabels++
		d.metrics.RelabeledLeaves += uint64(len(members))
		return
	}
	panic(errors.AssertionFailedf("label space exhausted"))
}

// updateTraCode re-derives the density code from the leaf arena size.
func (d *Runs) updateTraCode() {
	c := uint8(bits.Len(uint(d.textLeaves.Len())))
	if c < traCodeMin {
		c = traCodeMin
	} else if c > traCodeMax {
		c = traCodeMax
	}
	d.traCode = c
}

func (d *Runs) nextTextLeaf(leaf uint64) uint64 {
	tl := d.textAt(leaf)
	return nextLeaf(tl.parent, tl.idxInSibling)
}

func (d *Runs) prevTextLeaf(leaf uint64) uint64 {
	tl := d.textAt(leaf)
	return prevLeaf(tl.parent, tl.idxInSibling)
}
