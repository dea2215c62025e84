// Copyright 2025 The OsptBWT Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package osptbwt

// Options configure a Builder.
type Options struct {
	// EndMarker is the byte treated as the sequence end marker. It is also
	// the value reported for the implicit end marker of the text consumed
	// so far. Defaults to 1.
	EndMarker byte

	// Dollar, when nonzero, substitutes runs of byte 0 on WriteBWT output,
	// mirroring the conventional '$' rendering of the final marker.
	Dollar byte
}

// EnsureDefaults fills unset options with their defaults, allocating when
// the receiver is nil. The receiver is not modified.
func (o *Options) EnsureDefaults() *Options {
	var opts Options
	if o != nil {
		opts = *o
	}
	if opts.EndMarker == 0 {
		opts.EndMarker = 1
	}
	return &opts
}
