// Copyright 2025 The OsptBWT Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package osptbwt

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

const testEM = byte(1)

// feed maps '$' to the end marker byte and drives the given extend
// function.
func feed(extend func(byte), s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '$' {
			c = testEM
		}
		extend(c)
	}
}

// display renders stored bytes with the end marker as '$'.
func display(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		switch c {
		case testEM:
			out[i] = '$'
		case 0:
			out[i] = '#'
		default:
			out[i] = c
		}
	}
	return string(out)
}

func bwtBytes(t *testing.T, b *Builder) []byte {
	var buf bytes.Buffer
	require.NoError(t, b.WriteBWT(&buf))
	return buf.Bytes()
}

func countRuns(b []byte) int {
	n := 0
	for i := range b {
		if i == 0 || b[i] != b[i-1] {
			n++
		}
	}
	return n
}

func TestScenarios(t *testing.T) {
	datadriven.RunTest(t, "testdata/scenarios", func(t *testing.T, td *datadriven.TestData) string {
		b := New(nil)
		var sb strings.Builder
		switch td.Cmd {
		case "extend":
			feed(b.Extend, strings.TrimSpace(td.Input))
			bwt := bwtBytes(t, b)
			fmt.Fprintf(&sb, "bwt=%s\n", display(bwt))
			var full []byte
			for pos := uint64(0); pos < b.LenWithEndMarker(); pos++ {
				full = append(full, b.At(pos))
			}
			fmt.Fprintf(&sb, "full=%s\n", display(full))
			fmt.Fprintf(&sb, "empos=%d runs=%d len=%d",
				b.EndMarkerPos(), countRuns(bwt), b.LenWithEndMarker())
		case "sap-extend":
			feed(b.SAPExtend, strings.TrimSpace(td.Input))
			bwt := bwtBytes(t, b)
			s, e := b.SAPInterval()
			fmt.Fprintf(&sb, "bwt=%s\n", display(bwt))
			fmt.Fprintf(&sb, "runs=%d len=%d sap=[%d,%d]",
				countRuns(bwt), b.LenWithEndMarker(), s, e)
		default:
			td.Fatalf(t, "unknown command: %s", td.Cmd)
		}
		return sb.String()
	})
}

// naiveBWT computes the BWT of text (which must end in a unique smallest
// terminator) by sorting rotations.
func naiveBWT(text []byte) []byte {
	n := len(text)
	rot := make([]int, n)
	for i := range rot {
		rot[i] = i
	}
	sort.Slice(rot, func(a, b int) bool {
		i, j := rot[a], rot[b]
		for k := 0; k < n; k++ {
			ci, cj := text[(i+k)%n], text[(j+k)%n]
			if ci != cj {
				return ci < cj
			}
		}
		return false
	})
	out := make([]byte, n)
	for r, i := range rot {
		out[r] = text[(i+n-1)%n]
	}
	return out
}

// TestExactMatchesNaive feeds reversed random sequences and compares the
// stored BWT against the rotation-sort baseline of the forward text.
func TestExactMatchesNaive(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for iter := 0; iter < 50; iter++ {
		n := 1 + rng.Intn(60)
		seq := make([]byte, n)
		for i := range seq {
			seq[i] = byte('a' + rng.Intn(4))
		}

		b := New(nil)
		for i := n - 1; i >= 0; i-- {
			b.Extend(seq[i])
		}
		b.Extend(testEM)

		want := naiveBWT(append(append([]byte(nil), seq...), testEM))
		require.Equal(t, display(want), display(bwtBytes(t, b)), "seq=%q", seq)
		require.Equal(t, uint64(0), b.EndMarkerPos())
	}
}

// TestInvertRoundTrip checks that inversion reproduces the fed stream, in
// fed order, and that the length is conserved after every step. Inversion
// walks a single LF cycle, so it recovers one sequence: the inputs here
// are marker-free, optionally with the single closing marker.
func TestInvertRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for iter := 0; iter < 40; iter++ {
		n := 1 + rng.Intn(120)
		in := make([]byte, n)
		for i := range in {
			in[i] = byte('a' + rng.Intn(4))
		}
		if iter%2 == 0 {
			in = append(in, testEM)
			n++
		}

		b := New(nil)
		for i, c := range in {
			b.Extend(c)
			require.Equal(t, uint64(i+2), b.LenWithEndMarker())
		}

		var buf bytes.Buffer
		require.NoError(t, b.Invert(&buf))
		require.Equal(t, display(in), display(buf.Bytes()))

		ok, err := b.CheckDecode(bytes.NewReader(in))
		require.NoError(t, err)
		require.True(t, ok)
		if n > 1 {
			bad := append([]byte(nil), in...)
			bad[n/2] ^= 0x7f
			ok, err = b.CheckDecode(bytes.NewReader(bad))
			require.NoError(t, err)
			require.False(t, ok)
		}
	}
}

// TestLFCycle checks that the LF walk used by inversion visits distinct
// rows.
func TestLFCycle(t *testing.T) {
	b := New(nil)
	feed(b.Extend, "ippississim$")
	n := b.LenWithEndMarker()
	seen := map[uint64]bool{}
	pos := uint64(0)
	for i := uint64(0); i+1 < n; i++ {
		pos = b.LFMap(pos)
		require.False(t, seen[pos], "row %d visited twice", pos)
		seen[pos] = true
	}
	require.Len(t, seen, int(n-1))
}

// TestTotalRankAgreement compares TotalRank and At against brute force
// over the reconstructed BWT.
func TestTotalRankAgreement(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	b := New(nil)
	var fed []byte
	for i := 0; i < 300; i++ {
		c := byte('a' + rng.Intn(4))
		if rng.Intn(15) == 0 {
			c = testEM
		}
		b.Extend(c)
		fed = append(fed, c)
	}
	stored := bwtBytes(t, b)
	require.Equal(t, len(fed), len(stored))

	smaller := func(ch byte) (n uint64) {
		for _, c := range stored {
			if c < ch {
				n++
			}
		}
		return n
	}
	for pos := uint64(0); pos < b.LenWithEndMarker(); pos++ {
		// Reconstruct the row's character.
		var want byte = testEM
		if pos != b.EndMarkerPos() {
			p := pos
			if p > b.EndMarkerPos() {
				p--
			}
			want = stored[p]
		}
		require.Equal(t, want, b.At(pos))

		for _, ch := range []byte{testEM, 'a', 'b', 'c', 'd'} {
			p := pos
			if p > b.EndMarkerPos() {
				p--
			}
			var occ uint64
			for _, c := range stored[:p+1] {
				if c == ch {
					occ++
				}
			}
			if pos < b.LenWithEndMarker()-1 {
				require.Equal(t, smaller(ch)+occ, b.TotalRank(ch, pos),
					"pos=%d ch=%c", pos, ch)
			}
		}
	}
}

// TestLFMapInterval checks the backward-step interval over the full row
// range: for every present character it must be exactly that character's
// F block.
func TestLFMapInterval(t *testing.T) {
	b := New(nil)
	feed(b.Extend, "ananab$")
	stored := bwtBytes(t, b)

	for _, ch := range []byte{testEM, 'a', 'b', 'n'} {
		var c, occ uint64
		for _, x := range stored {
			if x < ch {
				c++
			}
			if x == ch {
				occ++
			}
		}
		lo, hi := b.LFMapInterval(0, b.LenWithEndMarker(), ch)
		require.Equal(t, c+1, lo, "ch=%c", ch)
		require.Equal(t, c+occ+1, hi, "ch=%c", ch)
	}

	lo, hi := b.LFMapInterval(0, b.LenWithEndMarker(), 'z')
	require.Zero(t, lo)
	require.Zero(t, hi)
	lo, hi = b.LFMapInterval(3, 3, 'a')
	require.Zero(t, lo)
	require.Zero(t, hi)
}

// mutate returns a copy of seq with a few random point mutations.
func mutate(rng *rand.Rand, seq []byte) []byte {
	out := append([]byte(nil), seq...)
	for i := 0; i < 1+len(out)/20; i++ {
		out[rng.Intn(len(out))] = byte('a' + rng.Intn(4))
	}
	return out
}

// TestSAPRunCount feeds collections of similar sequences to both builders:
// the SAP-aware run count never exceeds the exact one, and the tracked
// interval stays well formed after every step.
func TestSAPRunCount(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for iter := 0; iter < 25; iter++ {
		base := make([]byte, 8+rng.Intn(40))
		for i := range base {
			base[i] = byte('a' + rng.Intn(4))
		}
		var in []byte
		for k := 0; k < 2+rng.Intn(3); k++ {
			in = append(in, mutate(rng, base)...)
			in = append(in, testEM)
		}

		exact := New(nil)
		opt := New(nil)
		for _, c := range in {
			exact.Extend(c)
			opt.SAPExtend(c)
			s, e := opt.SAPInterval()
			require.LessOrEqual(t, s, e)
			require.LessOrEqual(t, e, opt.LenWithEndMarker()-1)
		}
		eb, ob := bwtBytes(t, exact), bwtBytes(t, opt)
		require.LessOrEqual(t, countRuns(ob), countRuns(eb), "in=%q", in)
		require.Equal(t, len(eb), len(ob))
	}
}

// TestRepeatedSequences reproduces the multi-sequence scenarios: identical
// sequences collapse to one run per character under SAP-aware insertion,
// and a crossing pair shows a strict win.
func TestRepeatedSequences(t *testing.T) {
	exact := New(nil)
	opt := New(nil)
	feed(exact.Extend, "acgt$acgt$")
	feed(opt.SAPExtend, "acgt$acgt$")

	eb := bwtBytes(t, exact)
	require.Equal(t, "aaccggtt$$", display(eb))
	require.Equal(t, 5, countRuns(eb))
	// Five distinct characters bound the run count from below, so the
	// SAP-aware build is exactly one run per character.
	require.Equal(t, 5, countRuns(bwtBytes(t, opt)))
	require.Equal(t, uint64(5), opt.NumRuns())

	exact = New(nil)
	opt = New(nil)
	feed(exact.Extend, "ab$ba$")
	feed(opt.SAPExtend, "ab$ba$")
	require.Less(t, countRuns(bwtBytes(t, opt)), countRuns(bwtBytes(t, exact)))
}

func TestOptions(t *testing.T) {
	b := New(&Options{EndMarker: '#', Dollar: '%'})
	require.Equal(t, byte('#'), b.EndMarker())
	for _, c := range []byte{'b', 'a', '#'} {
		b.Extend(c)
	}
	require.Equal(t, uint64(4), b.LenWithEndMarker())

	// The final 0 marker renders per Options.Dollar.
	b.Extend(0)
	var buf bytes.Buffer
	require.NoError(t, b.WriteBWT(&buf))
	require.Contains(t, buf.String(), "%")
}

func TestMetricsString(t *testing.T) {
	b := New(nil)
	feed(b.Extend, "ananab$")
	s := b.Metrics().String()
	require.Contains(t, s, "runs:")
	require.Contains(t, s, "len: 8")

	var chars []byte
	b.ForEachChar(func(ch byte, w uint64) { chars = append(chars, ch) })
	require.Equal(t, []byte{testEM, 'a', 'b', 'n'}, chars)
}
