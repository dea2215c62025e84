// Copyright 2025 The OsptBWT Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

// Package bitvec provides a fixed-capacity vector of unsigned integers
// packed at an arbitrary bit width in [1, 64]. The width is a property of
// the vector and can be widened in place via Convert; values survive any
// widening. Leaves of the run-length trees use one Vec per payload (run
// weights, cross-tree links), sized to the leaf fan-out.
package bitvec

import (
	"fmt"
	"math/bits"
)

// Vec is a packed vector of n values, each width bits wide. The zero value
// is not usable; construct with New.
type Vec struct {
	words []uint64
	width uint8
	n     int
}

// New returns a Vec with the given width and room for capacity values, all
// zero, with length zero.
func New(width uint8, capacity int) Vec {
	if width == 0 || width > 64 {
		panic(fmt.Sprintf("bitvec: invalid width %d", width))
	}
	return Vec{
		words: make([]uint64, (capacity*int(width)+63)/64),
		width: width,
	}
}

// Width returns the per-value bit width.
func (v *Vec) Width() uint8 { return v.width }

// Len returns the number of values.
func (v *Vec) Len() int { return v.n }

// Cap returns the number of values the current allocation can hold.
func (v *Vec) Cap() int { return len(v.words) * 64 / int(v.width) }

// SetLen grows or shrinks the logical length without touching storage.
func (v *Vec) SetLen(n int) {
	if n < 0 || n > v.Cap() {
		panic(fmt.Sprintf("bitvec: SetLen(%d) outside capacity %d", n, v.Cap()))
	}
	v.n = n
}

// Read returns value i.
func (v *Vec) Read(i int) uint64 {
	w := uint(v.width)
	off := uint(i) * w
	word, sh := off>>6, off&63
	x := v.words[word] >> sh
	if sh+w > 64 {
		x |= v.words[word+1] << (64 - sh)
	}
	if w < 64 {
		x &= 1<<w - 1
	}
	return x
}

// Write stores x as value i. Bits of x above the width must be zero.
func (v *Vec) Write(i int, x uint64) {
	w := uint(v.width)
	mask := ^uint64(0)
	if w < 64 {
		mask = 1<<w - 1
	}
	off := uint(i) * w
	word, sh := off>>6, off&63
	v.words[word] = v.words[word]&^(mask<<sh) | x<<sh
	if sh+w > 64 {
		hi := uint64(1)<<(sh+w-64) - 1
		v.words[word+1] = v.words[word+1]&^hi | x>>(64-sh)
	}
}

// Convert re-packs the vector at a new width with room for capacity values.
// Existing values are preserved; they must fit the new width.
func (v *Vec) Convert(width uint8, capacity int) {
	nv := New(width, capacity)
	for i := 0; i < v.n; i++ {
		nv.Write(i, v.Read(i))
	}
	nv.n = v.n
	*v = nv
}

// Move copies n values from src[si:] to dst[di:]. The widths must match.
// Overlapping ranges within one vector are handled.
func Move(src *Vec, si int, dst *Vec, di int, n int) {
	if src.width != dst.width {
		panic(fmt.Sprintf("bitvec: Move between widths %d and %d", src.width, dst.width))
	}
	if src == dst && di > si {
		for i := n - 1; i >= 0; i-- {
			dst.Write(di+i, src.Read(si+i))
		}
		return
	}
	for i := 0; i < n; i++ {
		dst.Write(di+i, src.Read(si+i))
	}
}

// MinWidth returns the smallest width that can hold x.
func MinWidth(x uint64) uint8 {
	if x == 0 {
		return 1
	}
	return uint8(bits.Len64(x))
}
