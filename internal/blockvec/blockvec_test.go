// Copyright 2025 The OsptBWT Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package blockvec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStableAddresses(t *testing.T) {
	v := New[int](8)
	var ptrs []*int
	for i := 0; i < 1000; i++ {
		idx, p := v.Push()
		require.Equal(t, i, idx)
		*p = i
		ptrs = append(ptrs, p)
	}
	require.Equal(t, 1000, v.Len())
	for i, p := range ptrs {
		require.Equal(t, i, *p)
		require.Same(t, p, v.At(i))
	}
}

func TestZeroed(t *testing.T) {
	v := New[struct{ a, b uint64 }](4)
	for i := 0; i < 64; i++ {
		_, p := v.Push()
		require.Zero(t, p.a)
		require.Zero(t, p.b)
	}
}
