// Copyright 2025 The OsptBWT Authors. All rights reserved. Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package rle

import "github.com/cockroachdb/errors"

// Check walks the whole structure and panics on the first inconsistency:
// partial sums that disagree with leaf weights, broken parent pointers,
// non-bijective cross links, labels out of order, zero-weight or
// mergeable adjacent runs, or a text/alphabet total mismatch. An
// inconsistency is not recoverable, so the panic carries an assertion
// failure. Intended for tests and invariants builds; cost is linear.
func (d *Runs) Check() {
	if !d.srootText.isDummy() || !d.srootAlpha.isDummy() {
		panic(errors.AssertionFailedf("super-root replaced"))
	}
	if tw, aw := d.rootText().total(), d.rootAlpha().total(); tw != aw {
		panic(errors.AssertionFailedf("text total %d != alphabet total %d", tw, aw))
	}
	d.checkNode(d.rootText())
	d.checkNode(d.rootAlpha())
	d.checkRuns()
	d.checkLabels()
	d.checkLinks()
}

// checkNode verifies child bookkeeping and partial sums of the subtree and
// returns its total weight.
func (d *Runs) checkNode(n *node) uint64 {
	if n.numChildren == 0 {
		panic(errors.AssertionFailedf("node without children"))
	}
	var sum uint64
	for i := 0; i < int(n.numChildren); i++ {
		var w uint64
		if n.isBorder() {
			w = d.checkLeaf(n, uint64(n.leaves[i]), uint8(i))
		} else {
			c := n.children[i]
			if c.parent != n || int(c.idxInSibling) != i {
				panic(errors.AssertionFailedf("child %d has bad parent link", i))
			}
			if n.kind != treeAlpha && (c.kind != n.kind || c.isRoot()) {
				panic(errors.AssertionFailedf("child %d has kind %d under kind %d", i, c.kind, n.kind))
			}
			w = d.checkNode(c)
		}
		sum += w
		if n.psums[i] != sum {
			panic(errors.AssertionFailedf("psum[%d]=%d, want %d", i, n.psums[i], sum))
		}
	}
	if lm := d.leftmostLeaf(n); lm != uint64(n.lmLeaf) {
		panic(errors.AssertionFailedf("lmLeaf=%d, want %d", n.lmLeaf, lm))
	}
	return sum
}

func (d *Runs) leftmostLeaf(n *node) uint64 {
	for !n.isBorder() {
		n = n.children[0]
	}
	return uint64(n.leaves[0])
}

func (d *Runs) checkLeaf(p *node, leaf uint64, idx uint8) uint64 {
	var sum uint64
	if p.kind == treeText {
		tl := d.textAt(leaf)
		if tl.parent != p || tl.idxInSibling != idx {
			panic(errors.AssertionFailedf("text leaf %d has bad parent link", leaf))
		}
		if tl.num == 0 {
			panic(errors.AssertionFailedf("empty text leaf %d", leaf))
		}
		for j := 0; j < int(tl.num); j++ {
			sum += tl.weights.Read(j)
		}
	} else {
		cl := d.charAt(leaf)
		if cl.parent != p || cl.idxInSibling != idx {
			panic(errors.AssertionFailedf("char leaf %d has bad parent link", leaf))
		}
		for j := 0; j < int(cl.num); j++ {
			sum += d.entryWeight(makeID(leaf, j))
		}
	}
	return sum
}

// checkRuns walks the text in order: weights positive, adjacent runs of
// distinct characters, run counter accurate. The sentinel (id 0) is
// excluded.
func (d *Runs) checkRuns() {
	var n uint64
	prevCh := -1
	for id := d.NextRun(0); id != NotFound; id = d.NextRun(id) {
		if w := d.RunWeight(id); w == 0 {
			panic(errors.AssertionFailedf("run %d has weight 0", id))
		}
		ch := int(d.RunChar(id))
		if ch == prevCh {
			panic(errors.AssertionFailedf("adjacent runs of %d at %d", ch, id))
		}
		prevCh = ch
		n++
	}
	if n != d.numRuns {
		panic(errors.AssertionFailedf("walked %d runs, counter says %d", n, d.numRuns))
	}
}

// checkLabels verifies that leaf labels strictly increase in text order.
func (d *Runs) checkLabels() {
	var prev uint64
	first := true
	for leaf := uint64(d.rootText().lmLeaf); leaf != NotFound; leaf = d.nextTextLeaf(leaf) {
		lb := d.textAt(leaf).label
		if !first && lb <= prev {
			panic(errors.AssertionFailedf("label %d after %d", lb, prev))
		}
		if lb >= labelSpace {
			panic(errors.AssertionFailedf("label %d outside label space", lb))
		}
		prev = lb
		first = false
	}
}

// checkLinks verifies the run/entry bijection and the label ordering of
// every char leaf.
func (d *Runs) checkLinks() {
	for id := d.NextRun(0); id != NotFound; id = d.NextRun(id) {
		cid := d.runLink(id)
		if d.entryLink(cid) != id {
			panic(errors.AssertionFailedf("run %d -> entry %d -> run %d", id, cid, d.entryLink(cid)))
		}
	}
	for r := d.firstCharRoot(); r != nil; r = d.nextCharRoot(r) {
		var prev uint64
		first := true
		for cid := makeID(uint64(r.lmLeaf), 0); cid != NotFound; cid = d.NextEntry(cid) {
			if d.runLink(d.entryLink(cid)) != cid {
				panic(errors.AssertionFailedf("entry %d -> run %d -> entry %d",
					cid, d.entryLink(cid), d.runLink(d.entryLink(cid))))
			}
			lb := d.entryLabel(cid)
			if !first && lb < prev {
				panic(errors.AssertionFailedf("entry labels out of order: %d after %d", lb, prev))
			}
			if next := d.NextEntry(cid); next != NotFound && d.PrevEntry(next) != cid {
				panic(errors.AssertionFailedf("entry iteration not symmetric at %d", cid))
			}
			prev = lb
			first = false
		}
	}
}
