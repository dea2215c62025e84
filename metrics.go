// Copyright 2025 The OsptBWT Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package osptbwt

import (
	"github.com/cockroachdb/redact"
	"github.com/xiaoYu0103/osptbwt/rle"
)

// Metrics is a point-in-time snapshot of the builder. None of the fields
// carry user data, so the whole snapshot formats as safe.
type Metrics struct {
	// Len is the BWT length including the implicit end marker.
	Len uint64
	// EmPos is the implicit end marker's row.
	EmPos uint64
	// NumRuns is the number of stored runs.
	NumRuns uint64
	// RLE holds the underlying structure's counters.
	RLE rle.Metrics
}

var _ redact.SafeFormatter = Metrics{}

// SafeFormat implements redact.SafeFormatter.
func (m Metrics) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("len: %d  runs: %d  em-pos: %d\n", m.Len, m.NumRuns, m.EmPos)
	w.Printf("leaves: %d text / %d char  splits: %d leaf / %d node\n",
		m.RLE.TextLeaves, m.RLE.CharLeaves, m.RLE.LeafSplits, m.RLE.NodeSplits)
	w.Printf("relabellings: %d (%d leaves touched)",
		m.RLE.Relabels, m.RLE.RelabeledLeaves)
}

func (m Metrics) String() string {
	return redact.StringWithoutMarkers(m)
}
