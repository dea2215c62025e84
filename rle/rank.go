// Copyright 2025 The OsptBWT Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package rle

// Rank returns the number of occurrences of ch in positions [0, pos]. With
// total, the weight of all characters smaller than ch is added, yielding
// the F-column position used by LF mapping. Returns NotFound when pos is
// out of range.
func (d *Runs) Rank(ch byte, pos uint64, total bool) uint64 {
	id, rel := d.SearchPos(pos)
	if id == NotFound {
		return NotFound
	}
	return d.RankRun(ch, id, rel, total)
}

// RankRun is Rank with the position already decomposed into a run and an
// offset within it, as returned by SearchPos or InsertRun.
//
// For an absent ch it returns 0, or with total the combined weight of all
// present characters smaller than ch (the F-column position of the
// smallest present character at or above ch).
func (d *Runs) RankRun(ch byte, id uint64, rel uint64, total bool) uint64 {
	root, ok := d.charRoots.Get(ch)
	if !ok {
		if !total {
			return 0
		}
		return d.CharStart(ch)
	}

	var cnt uint64
	var cid uint64
	if d.RunChar(id) == ch {
		// The position sits inside a ch run: count its prefix and locate
		// the run's own entry; everything before that entry is summed via
		// the char tree.
		cnt = rel + 1
		cid = d.runLink(id)
	} else {
		cid = d.predEntry(root, ch, id)
		if cid == NotFound {
			if !total {
				return 0
			}
			return ascendPSum(root, 0, true)
		}
		cnt = d.entryWeight(cid)
	}

	leaf := leafOf(cid)
	for j := 0; j < slotOf(cid); j++ {
		cnt += d.entryWeight(makeID(leaf, j))
	}
	cl := d.charAt(leaf)
	cnt += ascendPSum(cl.parent, int(cl.idxInSibling), total)
	return cnt
}

// predEntry returns the last entry of ch's tree at or before run id in
// text order, assuming run id itself is not a ch run; NotFound when no ch
// run precedes id. Runs in id's own leaf share its label, so they are
// scanned directly; earlier leaves are resolved by label predecessor
// search.
func (d *Runs) predEntry(root *node, ch byte, id uint64) uint64 {
	leaf := leafOf(id)
	tl := d.textAt(leaf)
	for j := slotOf(id) - 1; j >= 0; j-- {
		cid := tl.links.Read(j)
		if d.charAt(leafOf(cid)).ch == ch {
			return cid
		}
	}
	if tl.label == 0 {
		// Only the sentinel leaf carries label 0; nothing precedes it.
		return NotFound
	}
	return d.searchLabel(root, tl.label-1)
}

// searchLabel returns the rightmost entry of the tree under root whose
// owning text leaf has a label <= target, or NotFound. Entries are sorted
// by owner label, and the leftmost-leaf jumps give each child's first
// label in constant time.
func (d *Runs) searchLabel(root *node, target uint64) uint64 {
	n := root
	for !n.isBorder() {
		i := int(n.numChildren) - 1
		for i >= 0 && d.entryLabel(makeID(uint64(n.children[i].lmLeaf), 0)) > target {
			i--
		}
		if i < 0 {
			return NotFound
		}
		n = n.children[i]
	}
	i := int(n.numChildren) - 1
	for i >= 0 && d.entryLabel(makeID(uint64(n.leaves[i]), 0)) > target {
		i--
	}
	if i < 0 {
		return NotFound
	}
	leaf := uint64(n.leaves[i])
	cl := d.charAt(leaf)
	lo, hi := 0, int(cl.num)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if d.entryLabel(makeID(leaf, mid)) <= target {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return makeID(leaf, lo)
}

// Select returns the text position of the rank-th occurrence (1-based) of
// ch, or NotFound past the last occurrence.
func (d *Runs) Select(ch byte, rank uint64) uint64 {
	root, ok := d.charRoots.Get(ch)
	if !ok || rank == 0 || rank > root.total() {
		return NotFound
	}
	return d.selectInTree(root, rank-1)
}

// SelectTotal treats the concatenation of all characters in F-column order
// as one sequence and returns the text position of its rank-th element
// (1-based); NotFound past the total length. The alphabet tree picks the
// character, then the descent continues unchanged.
func (d *Runs) SelectTotal(rank uint64) uint64 {
	if rank == 0 || rank > d.Len() {
		return NotFound
	}
	r := rank - 1
	n := d.rootAlpha()
	for {
		var i int
		i, r = n.searchPos(r)
		n = n.children[i]
		if n.isRoot() {
			return d.selectInTree(n, r)
		}
	}
}

// selectInTree descends a char tree by partial sums for the 0-based
// residual r and translates the located entry back to a text position.
func (d *Runs) selectInTree(root *node, r uint64) uint64 {
	n := root
	for !n.isBorder() {
		var i int
		i, r = n.searchPos(r)
		n = n.children[i]
	}
	i, r := n.searchPos(r)
	leaf := uint64(n.leaves[i])
	slot := 0
	for {
		w := d.entryWeight(makeID(leaf, slot))
		if r < w {
			break
		}
		r -= w
		slot++
	}
	return d.runStart(d.entryLink(makeID(leaf, slot))) + r
}

// runStart returns the text position of the first character of run id.
func (d *Runs) runStart(id uint64) uint64 {
	tl := d.textAt(leafOf(id))
	var sum uint64
	for j := 0; j < slotOf(id); j++ {
		sum += tl.weights.Read(j)
	}
	return sum + ascendPSum(tl.parent, int(tl.idxInSibling), false)
}
