// Copyright 2025 The OsptBWT Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

// Package rle implements a dynamic run-length encoded string with
// rank/select/insert in logarithmic time per operation.
//
// The encoding lives in three coupled B+trees. The text tree orders runs
// by text position; its leaves hold up to 32 runs each (packed weights and
// a packed link per run). One char tree per distinct character lists that
// character's runs in text order; its leaves hold links back into the text
// leaves. The alphabet tree orders the char-tree roots by character and
// aggregates their weights, which turns rank-with-total (the F-column
// position) into one extra ascent.
//
// Cross-references between the trees are arena indices, never pointers: a
// run index packs (text-leaf arena slot << 5) | slot-in-leaf, and entry
// indices do the same on the char side. Both arenas are paged and never
// relocate.
package rle

import (
	"github.com/cockroachdb/swiss"
	"github.com/xiaoYu0103/osptbwt/internal/bitvec"
	"github.com/xiaoYu0103/osptbwt/internal/blockvec"
)

const (
	textLeafBlock = 512
	charLeafBlock = 1024
)

// textLeaf is a leaf of the text tree: up to 32 runs in text order. Weights
// and links are packed; both widths grow on demand. The label orders this
// leaf totally among all text leaves (see label.go).
type textLeaf struct {
	weights      bitvec.Vec
	links        bitvec.Vec // run -> char-entry index
	label        uint64
	parent       *node
	idxInSibling uint8
	num          uint8
}

// charLeaf is a leaf of one char tree: links back to the runs of a single
// character, sorted by the label of the owning text leaf (ties are slots
// of one leaf, which are already in text order).
type charLeaf struct {
	links        bitvec.Vec // entry -> run index
	ch           byte
	parent       *node
	idxInSibling uint8
	num          uint8
}

// Runs is the dynamic run-length encoded string. The zero value is not
// usable; construct with New.
//
// Run and entry indices returned by Runs remain valid until a subsequent
// insertion, which may shift slots within a leaf or split a leaf.
type Runs struct {
	textLeaves *blockvec.Vec[textLeaf]
	charLeaves *blockvec.Vec[charLeaf]
	srootText  *node
	srootAlpha *node
	// charRoots caches the char-tree root per character. The alphabet tree
	// stays the source of truth for predecessor search and ordered walks;
	// the cache only short-cuts exact lookups. Updated on grafts and on
	// char-root replacement in growRoot.
	charRoots swiss.Map[byte, *node]
	traCode   uint8
	numRuns   uint64
	metrics   Metrics
}

// Metrics is a point-in-time snapshot of structure counters.
type Metrics struct {
	Runs            uint64
	TextLeaves      uint64
	CharLeaves      uint64
	NodeSplits      uint64
	LeafSplits      uint64
	Relabels        uint64
	RelabeledLeaves uint64
}

// New returns an empty string. Both trees start with a weight-0 sentinel
// run (character 0) so every real run has a predecessor and the char-0
// tree anchors the alphabet tree; the sentinel is never deleted.
func New() *Runs {
	d := &Runs{
		textLeaves: blockvec.New[textLeaf](textLeafBlock),
		charLeaves: blockvec.New[charLeaf](charLeafBlock),
		traCode:    traCodeMin,
	}
	d.charRoots.Init(16)

	_, tl := d.textLeaves.Push()
	tl.weights = bitvec.New(4, arity)
	tl.links = bitvec.New(4, arity)
	tl.weights.SetLen(1)
	tl.links.SetLen(1)
	tl.num = 1

	_, cl := d.charLeaves.Push()
	cl.links = bitvec.New(4, arity)
	cl.links.SetLen(1)
	cl.num = 1

	rootT := &node{kind: treeText, flags: flagBorder | flagRoot | flagSuper}
	rootT.leaves[0] = 0
	rootT.numChildren = 1
	tl.parent = rootT
	d.srootText = &node{kind: treeText, flags: flagDummy}
	d.srootText.children[0] = rootT
	d.srootText.numChildren = 1
	rootT.parent = d.srootText

	rootC := &node{kind: treeChar, flags: flagBorder | flagRoot}
	rootC.leaves[0] = 0
	rootC.numChildren = 1
	cl.parent = rootC

	rootA := &node{kind: treeAlpha, flags: flagRoot | flagSuper}
	rootA.children[0] = rootC
	rootA.numChildren = 1
	rootC.parent = rootA
	d.srootAlpha = &node{kind: treeAlpha, flags: flagDummy}
	d.srootAlpha.children[0] = rootA
	d.srootAlpha.numChildren = 1
	rootA.parent = d.srootAlpha

	d.charRoots.Put(0, rootC)
	return d
}

func (d *Runs) rootText() *node  { return d.srootText.children[0] }
func (d *Runs) rootAlpha() *node { return d.srootAlpha.children[0] }

func (d *Runs) textAt(leaf uint64) *textLeaf { return d.textLeaves.At(int(leaf)) }
func (d *Runs) charAt(leaf uint64) *charLeaf { return d.charLeaves.At(int(leaf)) }

func leafOf(id uint64) uint64 { return id >> arityLog }
func slotOf(id uint64) int    { return int(id & slotMask) }
func makeID(leaf uint64, slot int) uint64 {
	return leaf<<arityLog | uint64(slot)
}

// Len returns the total weight (the length of the encoded string).
func (d *Runs) Len() uint64 { return d.rootText().total() }

// NumRuns returns the number of runs.
func (d *Runs) NumRuns() uint64 { return d.numRuns }

// CharLen returns the number of occurrences of ch.
func (d *Runs) CharLen(ch byte) uint64 {
	r, ok := d.charRoots.Get(ch)
	if !ok {
		return 0
	}
	return r.total()
}

// HasChar reports whether ch occurs (has a char tree).
func (d *Runs) HasChar(ch byte) bool {
	_, ok := d.charRoots.Get(ch)
	return ok
}

// RunWeight returns the weight of run id.
func (d *Runs) RunWeight(id uint64) uint64 {
	return d.textAt(leafOf(id)).weights.Read(slotOf(id))
}

// RunChar returns the character of run id.
func (d *Runs) RunChar(id uint64) byte {
	return d.charAt(leafOf(d.runLink(id))).ch
}

func (d *Runs) runLink(id uint64) uint64 {
	return d.textAt(leafOf(id)).links.Read(slotOf(id))
}

func (d *Runs) entryLink(cid uint64) uint64 {
	return d.charAt(leafOf(cid)).links.Read(slotOf(cid))
}

func (d *Runs) entryWeight(cid uint64) uint64 {
	return d.RunWeight(d.entryLink(cid))
}

func (d *Runs) entryLabel(cid uint64) uint64 {
	return d.textAt(leafOf(d.entryLink(cid))).label
}

func (d *Runs) leafChar(leaf uint32) byte { return d.charLeaves.At(int(leaf)).ch }

// Metrics returns a snapshot of the structure counters.
func (d *Runs) Metrics() Metrics {
	m := d.metrics
	m.Runs = d.numRuns
	m.TextLeaves = uint64(d.textLeaves.Len())
	m.CharLeaves = uint64(d.charLeaves.Len())
	return m
}

// setLeafParent rewires a leaf's parent pointer and sibling slot. kind
// selects the arena.
func (d *Runs) setLeafParent(kind treeKind, leaf uint32, p *node, idx uint8) {
	if kind == treeText {
		tl := d.textLeaves.At(int(leaf))
		tl.parent = p
		tl.idxInSibling = idx
	} else {
		cl := d.charLeaves.At(int(leaf))
		cl.parent = p
		cl.idxInSibling = idx
	}
}

func (d *Runs) setLeafSlot(kind treeKind, leaf uint32, idx uint8) {
	if kind == treeText {
		d.textLeaves.At(int(leaf)).idxInSibling = idx
	} else {
		d.charLeaves.At(int(leaf)).idxInSibling = idx
	}
}

// SearchPos returns the run containing text position pos and the offset of
// pos within that run. Returns (NotFound, 0) when pos is out of range.
func (d *Runs) SearchPos(pos uint64) (uint64, uint64) {
	if pos >= d.Len() {
		return NotFound, 0
	}
	n := d.rootText()
	for !n.isBorder() {
		var i int
		i, pos = n.searchPos(pos)
		n = n.children[i]
	}
	i, pos := n.searchPos(pos)
	leaf := uint64(n.leaves[i])
	tl := d.textAt(leaf)
	slot := 0
	for {
		w := tl.weights.Read(slot)
		if pos < w {
			break
		}
		pos -= w
		slot++
	}
	return makeID(leaf, slot), pos
}

// NextRun returns the run after id in text order, or NotFound.
func (d *Runs) NextRun(id uint64) uint64 {
	leaf := leafOf(id)
	tl := d.textAt(leaf)
	if slotOf(id)+1 < int(tl.num) {
		return id + 1
	}
	nl := nextLeaf(tl.parent, tl.idxInSibling)
	if nl == NotFound {
		return NotFound
	}
	return makeID(nl, 0)
}

// PrevRun returns the run before id in text order, or NotFound. The
// weight-0 sentinel run (id 0) is the predecessor of the first real run.
func (d *Runs) PrevRun(id uint64) uint64 {
	if slotOf(id) > 0 {
		return id - 1
	}
	tl := d.textAt(leafOf(id))
	pl := prevLeaf(tl.parent, tl.idxInSibling)
	if pl == NotFound {
		return NotFound
	}
	return makeID(pl, int(d.leafNum(tl.parent.kind, pl))-1)
}

func (d *Runs) leafNum(kind treeKind, leaf uint64) uint8 {
	if kind == treeText {
		return d.textAt(leaf).num
	}
	return d.charAt(leaf).num
}

// nextLeaf returns the leaf after slot idx of border node p in tree order,
// or NotFound at the end of the tree. The leftmost-leaf jump makes the hop
// constant time once the turning point is found.
func nextLeaf(p *node, idx uint8) uint64 {
	if int(idx)+1 < int(p.numChildren) {
		return uint64(p.leaves[idx+1])
	}
	n := p
	for !n.isRoot() {
		pp := n.parent
		if int(n.idxInSibling)+1 < int(pp.numChildren) {
			return uint64(pp.children[n.idxInSibling+1].lmLeaf)
		}
		n = pp
	}
	return NotFound
}

// prevLeaf is the mirror of nextLeaf. There is no rightmost jump, so the
// final descent walks last children.
func prevLeaf(p *node, idx uint8) uint64 {
	if idx > 0 {
		return uint64(p.leaves[idx-1])
	}
	n := p
	for !n.isRoot() {
		pp := n.parent
		if n.idxInSibling > 0 {
			m := pp.children[n.idxInSibling-1]
			for !m.isBorder() {
				m = m.children[m.numChildren-1]
			}
			return uint64(m.leaves[m.numChildren-1])
		}
		n = pp
	}
	return NotFound
}

// NextEntry returns the entry after cid within its char tree, or NotFound
// at the end of that character's runs.
func (d *Runs) NextEntry(cid uint64) uint64 {
	leaf := leafOf(cid)
	cl := d.charAt(leaf)
	if slotOf(cid)+1 < int(cl.num) {
		return cid + 1
	}
	nl := nextLeaf(cl.parent, cl.idxInSibling)
	if nl == NotFound {
		return NotFound
	}
	return makeID(nl, 0)
}

// PrevEntry returns the entry before cid within its char tree, or
// NotFound.
func (d *Runs) PrevEntry(cid uint64) uint64 {
	if slotOf(cid) > 0 {
		return cid - 1
	}
	cl := d.charAt(leafOf(cid))
	pl := prevLeaf(cl.parent, cl.idxInSibling)
	if pl == NotFound {
		return NotFound
	}
	return makeID(pl, int(d.charAt(pl).num)-1)
}

// searchChar returns the char-tree root for ch if present, else the root
// with the largest character below ch. Child 0 at every alphabet level
// leads to the char-0 anchor, so a predecessor always exists.
func (d *Runs) searchChar(ch byte) *node {
	if r, ok := d.charRoots.Get(ch); ok {
		return r
	}
	n := d.rootAlpha()
	for {
		i := int(n.numChildren) - 1
		for i > 0 && d.leafChar(n.children[i].lmLeaf) > ch {
			i--
		}
		c := n.children[i]
		if c.isRoot() {
			return c
		}
		n = c
	}
}

// CharStart returns the total weight of all characters smaller than ch:
// the F-column position at which ch's block begins.
func (d *Runs) CharStart(ch byte) uint64 {
	r := d.searchChar(ch)
	sum := ascendPSum(r, 0, true)
	if d.leafChar(r.lmLeaf) < ch {
		sum += r.total()
	}
	return sum
}

// ForEachChar visits every present character in increasing order with its
// total weight. The weight-0 sentinel character is skipped unless it has
// acquired real occurrences.
func (d *Runs) ForEachChar(fn func(ch byte, weight uint64)) {
	for r := d.firstCharRoot(); r != nil; r = d.nextCharRoot(r) {
		if w := r.total(); w > 0 {
			fn(d.leafChar(r.lmLeaf), w)
		}
	}
}

func (d *Runs) firstCharRoot() *node {
	n := d.rootAlpha()
	for {
		c := n.children[0]
		if c.isRoot() {
			return c
		}
		n = c
	}
}

func (d *Runs) nextCharRoot(r *node) *node {
	n := r
	for !n.isSuper() {
		p := n.parent
		if int(n.idxInSibling)+1 < int(p.numChildren) {
			c := p.children[n.idxInSibling+1]
			for !c.isRoot() {
				c = c.children[0]
			}
			return c
		}
		n = p
	}
	return nil
}
