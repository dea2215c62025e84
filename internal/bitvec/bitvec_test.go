// Copyright 2025 The OsptBWT Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package bitvec

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestReadWriteRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, width := range []uint8{1, 3, 7, 8, 13, 31, 32, 33, 63, 64} {
		t.Run("", func(t *testing.T) {
			const n = 200
			v := New(width, n)
			v.SetLen(n)
			mirror := make([]uint64, n)
			mask := ^uint64(0)
			if width < 64 {
				mask = 1<<width - 1
			}
			for iter := 0; iter < 2000; iter++ {
				i := rng.Intn(n)
				x := rng.Uint64() & mask
				v.Write(i, x)
				mirror[i] = x
				j := rng.Intn(n)
				require.Equal(t, mirror[j], v.Read(j))
			}
			for i := range mirror {
				require.Equal(t, mirror[i], v.Read(i))
			}
		})
	}
}

func TestConvertWidens(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	v := New(5, 64)
	v.SetLen(64)
	mirror := make([]uint64, 64)
	for i := range mirror {
		mirror[i] = rng.Uint64() & 31
		v.Write(i, mirror[i])
	}
	for _, w := range []uint8{6, 11, 24, 64} {
		v.Convert(w, 64)
		require.Equal(t, w, v.Width())
		require.Equal(t, 64, v.Len())
		for i := range mirror {
			require.Equal(t, mirror[i], v.Read(i))
		}
	}
}

func TestMoveOverlapping(t *testing.T) {
	v := New(9, 40)
	v.SetLen(40)
	mirror := make([]uint64, 40)
	for i := range mirror {
		mirror[i] = uint64(i * 11 % 512)
		v.Write(i, mirror[i])
	}
	// Shift right within the same vector, as a leaf does when opening a
	// slot.
	Move(&v, 10, &v, 13, 20)
	copy(mirror[13:33], append([]uint64(nil), mirror[10:30]...))
	for i := range mirror {
		require.Equal(t, mirror[i], v.Read(i), "i=%d", i)
	}
	// And left.
	Move(&v, 5, &v, 2, 30)
	copy(mirror[2:32], append([]uint64(nil), mirror[5:35]...))
	for i := range mirror {
		require.Equal(t, mirror[i], v.Read(i), "i=%d", i)
	}
}

func TestMoveAcrossVectors(t *testing.T) {
	src := New(13, 32)
	src.SetLen(32)
	for i := 0; i < 32; i++ {
		src.Write(i, uint64(i)*257%8192)
	}
	dst := New(13, 32)
	dst.SetLen(16)
	Move(&src, 16, &dst, 0, 16)
	for i := 0; i < 16; i++ {
		require.Equal(t, src.Read(16+i), dst.Read(i))
	}
}

func TestMinWidth(t *testing.T) {
	require.Equal(t, uint8(1), MinWidth(0))
	require.Equal(t, uint8(1), MinWidth(1))
	require.Equal(t, uint8(2), MinWidth(2))
	require.Equal(t, uint8(2), MinWidth(3))
	require.Equal(t, uint8(3), MinWidth(4))
	require.Equal(t, uint8(64), MinWidth(^uint64(0)))
}
