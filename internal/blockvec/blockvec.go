// Copyright 2025 The OsptBWT Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

// Package blockvec provides a paged arena: an append-only vector allocated
// in fixed-size blocks. Blocks never relocate, so pointers returned by At
// stay valid across growth; only the block directory is ever reallocated.
package blockvec

import "fmt"

// Vec is a paged arena of T.
type Vec[T any] struct {
	blocks    [][]T
	blockSize int
	n         int
}

// New returns an empty arena using blocks of blockSize elements.
func New[T any](blockSize int) *Vec[T] {
	if blockSize <= 0 {
		panic(fmt.Sprintf("blockvec: invalid block size %d", blockSize))
	}
	return &Vec[T]{blockSize: blockSize}
}

// Len returns the number of allocated elements.
func (v *Vec[T]) Len() int { return v.n }

// Push allocates a new zeroed element and returns its index and address.
func (v *Vec[T]) Push() (int, *T) {
	if v.n == len(v.blocks)*v.blockSize {
		v.blocks = append(v.blocks, make([]T, v.blockSize))
	}
	i := v.n
	v.n++
	return i, v.At(i)
}

// At returns the address of element i. The address is stable for the
// lifetime of the arena.
func (v *Vec[T]) At(i int) *T {
	return &v.blocks[i/v.blockSize][i%v.blockSize]
}
