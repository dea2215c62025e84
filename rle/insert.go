// Copyright 2025 The OsptBWT Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package rle

import (
	"github.com/cockroachdb/errors"
	"github.com/xiaoYu0103/osptbwt/internal/bitvec"
	"github.com/xiaoYu0103/osptbwt/internal/invariants"
)

// InsertRun inserts w copies of ch at text position pos, merging into an
// adjacent equal-character run where possible and splitting a foreign run
// otherwise. It returns the run now containing the inserted characters and
// the offset of the first inserted character within it. pos == Len appends.
// Returns (NotFound, 0) when pos exceeds the length.
func (d *Runs) InsertRun(pos uint64, ch byte, w uint64) (uint64, uint64) {
	switch total := d.Len(); {
	case pos > total:
		return NotFound, 0
	case pos == total:
		return d.PushBackRun(ch, w)
	}
	id, rel := d.SearchPos(pos)
	if d.RunChar(id) == ch {
		d.ChangeWeight(id, int64(w))
		d.maybeCheck()
		return id, rel
	}
	if rel == 0 {
		prev := d.PrevRun(id)
		if prev != 0 && d.RunChar(prev) == ch {
			pw := d.RunWeight(prev)
			d.ChangeWeight(prev, int64(w))
			d.maybeCheck()
			return prev, pw
		}
		nid := d.insertNewRunAfter(prev, ch, w)
		d.maybeCheck()
		return nid, 0
	}
	// Split: the run keeps its first rel characters, the insertion goes in
	// the middle, and a fresh run carries the original character's tail.
	w0 := d.RunWeight(id)
	c0 := d.RunChar(id)
	d.ChangeWeight(id, int64(rel)-int64(w0))
	nid := d.insertNewRunAfter(id, ch, w)
	// The tail's insertion may split the leaf and move nid; the tail sits
	// directly after it, so re-derive nid from there.
	nid = d.PrevRun(d.insertNewRunAfter(nid, c0, w0-rel))
	d.maybeCheck()
	return nid, 0
}

// InsertRunAfter inserts w copies of ch directly after run id, merging
// with id or its successor when the characters match.
func (d *Runs) InsertRunAfter(id uint64, ch byte, w uint64) uint64 {
	if d.RunChar(id) == ch {
		d.ChangeWeight(id, int64(w))
		return id
	}
	if next := d.NextRun(id); next != NotFound && d.RunChar(next) == ch {
		d.ChangeWeight(next, int64(w))
		return next
	}
	nid := d.insertNewRunAfter(id, ch, w)
	d.maybeCheck()
	return nid
}

// PushBackRun appends w copies of ch, merging with the last run when the
// characters match. Returns the run and the offset of the first appended
// character within it.
func (d *Runs) PushBackRun(ch byte, w uint64) (uint64, uint64) {
	last := d.lastRun()
	if last != 0 && d.RunChar(last) == ch {
		lw := d.RunWeight(last)
		d.ChangeWeight(last, int64(w))
		d.maybeCheck()
		return last, lw
	}
	nid := d.insertNewRunAfter(last, ch, w)
	d.maybeCheck()
	return nid, 0
}

// PushBackRunNoMerge appends w copies of ch as a fresh run even when the
// last run has the same character.
func (d *Runs) PushBackRunNoMerge(ch byte, w uint64) uint64 {
	return d.insertNewRunAfter(d.lastRun(), ch, w)
}

// ChangeWeight adds delta to the weight of run id and propagates the
// change through the text tree and, via the run's entry, through its char
// tree and the alphabet tree.
func (d *Runs) ChangeWeight(id uint64, delta int64) {
	tl := d.textAt(leafOf(id))
	slot := slotOf(id)
	nw := uint64(int64(tl.weights.Read(slot)) + delta)
	if need := bitvec.MinWidth(nw); need > tl.weights.Width() {
		tl.weights.Convert(need, arity)
	}
	tl.weights.Write(slot, nw)
	tl.parent.changePSumFrom(int(tl.idxInSibling), delta)

	cl := d.charAt(leafOf(d.runLink(id)))
	cl.parent.changePSumFrom(int(cl.idxInSibling), delta)
}

// lastRun returns the rightmost run; the sentinel (id 0) when empty.
func (d *Runs) lastRun() uint64 {
	n := d.rootText()
	for !n.isBorder() {
		n = n.children[n.numChildren-1]
	}
	leaf := uint64(n.leaves[n.numChildren-1])
	return makeID(leaf, int(d.textAt(leaf).num)-1)
}

// insertNewRunAfter allocates a run of w copies of ch directly after run
// id, wiring it into its char tree (grafting a fresh tree for a first
// occurrence) and updating the partial sums of all three trees.
func (d *Runs) insertNewRunAfter(id uint64, ch byte, w uint64) uint64 {
	nid := d.makeSpaceAfterRun(id)
	root, fresh := d.charTree(ch)
	pred := NotFound
	if !fresh {
		pred = d.predEntry(root, ch, nid)
	}
	ncid := d.makeSpaceEntry(root, pred)
	d.writeRunLink(nid, ncid)
	d.writeEntryLink(ncid, nid)
	d.ChangeWeight(nid, int64(w))
	d.numRuns++
	return nid
}

// writeRunLink points run tid at char entry cid, widening the link vector
// when needed.
func (d *Runs) writeRunLink(tid, cid uint64) {
	tl := d.textAt(leafOf(tid))
	if need := bitvec.MinWidth(cid); need > tl.links.Width() {
		tl.links.Convert(need, arity)
	}
	tl.links.Write(slotOf(tid), cid)
}

// writeEntryLink points char entry cid back at run tid.
func (d *Runs) writeEntryLink(cid, tid uint64) {
	cl := d.charAt(leafOf(cid))
	if need := bitvec.MinWidth(tid); need > cl.links.Width() {
		cl.links.Convert(need, arity)
	}
	cl.links.Write(slotOf(cid), tid)
}

// makeSpaceAfterRun opens a zero-weight slot directly after run id,
// splitting the leaf when full, and returns the new run index. The slot's
// link is stale until writeRunLink.
func (d *Runs) makeSpaceAfterRun(id uint64) uint64 {
	leaf := leafOf(id)
	at := slotOf(id) + 1
	if int(d.textAt(leaf).num) < arity {
		d.openRunSlot(leaf, at)
		return makeID(leaf, at)
	}
	nl := d.splitTextLeaf(leaf)
	if at <= arity/2 {
		d.openRunSlot(leaf, at)
		return makeID(leaf, at)
	}
	d.openRunSlot(nl, at-arity/2)
	return makeID(nl, at-arity/2)
}

// openRunSlot shifts runs [at, num) of leaf one slot right and zeroes the
// weight at the gap. Shifted runs' char entries are repointed.
func (d *Runs) openRunSlot(leaf uint64, at int) {
	tl := d.textAt(leaf)
	n := int(tl.num)
	tl.weights.SetLen(n + 1)
	tl.links.SetLen(n + 1)
	bitvec.Move(&tl.weights, at, &tl.weights, at+1, n-at)
	bitvec.Move(&tl.links, at, &tl.links, at+1, n-at)
	tl.weights.Write(at, 0)
	tl.num++
	for j := at + 1; j <= n; j++ {
		d.writeEntryLink(tl.links.Read(j), makeID(leaf, j))
	}
}

// splitTextLeaf moves the upper half of leaf into a fresh leaf, repoints
// the moved runs' char entries, splices the new leaf into the border node
// and labels it. Ancestor sums are untouched: the weight only moves
// sideways under the shared parent.
func (d *Runs) splitTextLeaf(leaf uint64) uint64 {
	tl := d.textAt(leaf)
	nli, ntl := d.textLeaves.Push()
	nl := uint64(nli)
	h := arity / 2
	ntl.weights = bitvec.New(tl.weights.Width(), arity)
	ntl.links = bitvec.New(tl.links.Width(), arity)
	ntl.weights.SetLen(h)
	ntl.links.SetLen(h)
	bitvec.Move(&tl.weights, h, &ntl.weights, 0, h)
	bitvec.Move(&tl.links, h, &ntl.links, 0, h)
	tl.weights.SetLen(h)
	tl.links.SetLen(h)
	tl.num = uint8(h)
	ntl.num = uint8(h)

	var moved uint64
	for j := 0; j < h; j++ {
		moved += ntl.weights.Read(j)
	}
	for j := 0; j < h; j++ {
		d.writeEntryLink(ntl.links.Read(j), makeID(nl, j))
	}

	// The new leaf goes in at weight 0 and then takes the moved weight from
	// its left neighbour. A parent split during the insertion keeps the two
	// leaves adjacent under one parent, so only the old leaf's sum changes.
	d.insertLeafChild(tl.parent, uint32(nl), 0, int(tl.idxInSibling)+1)
	tl.parent.psums[tl.idxInSibling] -= moved
	d.assignLabel(nl, leaf)
	d.metrics.LeafSplits++
	d.updateTraCode()
	return nl
}

// charTree returns ch's tree root, grafting a fresh empty tree into the
// alphabet order when ch is new. fresh reports a graft, in which case the
// tree has a single empty leaf and no entries to search.
func (d *Runs) charTree(ch byte) (_ *node, fresh bool) {
	if r, ok := d.charRoots.Get(ch); ok {
		return r, false
	}
	pred := d.searchChar(ch)
	if invariants.Enabled && d.leafChar(pred.lmLeaf) >= ch {
		panic(errors.AssertionFailedf("char %d already present", ch))
	}
	nli, cl := d.charLeaves.Push()
	cl.links = bitvec.New(4, arity)
	cl.ch = ch
	root := &node{kind: treeChar, flags: flagBorder | flagRoot}
	root.leaves[0] = uint32(nli)
	root.numChildren = 1
	root.lmLeaf = uint32(nli)
	cl.parent = root

	d.insertNodeChild(pred.parent, root, 0, int(pred.idxInSibling)+1)
	d.charRoots.Put(ch, root)
	return root, true
}

// makeSpaceEntry opens an entry slot directly after pred in ch's tree
// (at the very front when pred is NotFound) and returns the new entry
// index. The slot's link is stale until writeEntryLink.
func (d *Runs) makeSpaceEntry(root *node, pred uint64) uint64 {
	var leaf uint64
	var at int
	if pred == NotFound {
		leaf = uint64(root.lmLeaf)
	} else {
		leaf = leafOf(pred)
		at = slotOf(pred) + 1
	}
	if int(d.charAt(leaf).num) < arity {
		d.openEntrySlot(leaf, at)
		return makeID(leaf, at)
	}
	nl := d.splitCharLeaf(leaf)
	if at <= arity/2 {
		d.openEntrySlot(leaf, at)
		return makeID(leaf, at)
	}
	d.openEntrySlot(nl, at-arity/2)
	return makeID(nl, at-arity/2)
}

// openEntrySlot shifts entries [at, num) of leaf one slot right. Shifted
// entries' runs are repointed.
func (d *Runs) openEntrySlot(leaf uint64, at int) {
	cl := d.charAt(leaf)
	n := int(cl.num)
	cl.links.SetLen(n + 1)
	bitvec.Move(&cl.links, at, &cl.links, at+1, n-at)
	cl.num++
	for j := at + 1; j <= n; j++ {
		d.writeRunLink(cl.links.Read(j), makeID(leaf, j))
	}
}

// splitCharLeaf is splitTextLeaf for a char leaf; no label is needed.
func (d *Runs) splitCharLeaf(leaf uint64) uint64 {
	cl := d.charAt(leaf)
	nli, ncl := d.charLeaves.Push()
	nl := uint64(nli)
	h := arity / 2
	ncl.links = bitvec.New(cl.links.Width(), arity)
	ncl.links.SetLen(h)
	ncl.ch = cl.ch
	bitvec.Move(&cl.links, h, &ncl.links, 0, h)
	cl.links.SetLen(h)
	cl.num = uint8(h)
	ncl.num = uint8(h)

	var moved uint64
	for j := 0; j < h; j++ {
		moved += d.RunWeight(ncl.links.Read(j))
	}
	for j := 0; j < h; j++ {
		d.writeRunLink(ncl.links.Read(j), makeID(nl, j))
	}

	d.insertLeafChild(cl.parent, uint32(nl), 0, int(cl.idxInSibling)+1)
	cl.parent.psums[cl.idxInSibling] -= moved
	d.metrics.LeafSplits++
	return nl
}

func (d *Runs) maybeCheck() {
	if invariants.Enabled && invariants.Sometimes(1) {
		d.Check()
	}
}
