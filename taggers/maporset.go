// Copyright 2019 VMware, Inc.
// SPDX-License-Identifier: GPL-2.0

package taggers

import (
	"github.com/GDLynx/chap/allocations"
	"github.com/GDLynx/chap/core"
)

// RBTreeNode recognizes a red-black tree node, the shape underlying
// both std::map and std::set: a small fixed header of color, parent,
// left and right fields, where left and right are each either null or
// the address of another allocation of the same apparent shape.
//
// Color/parent/left/right alone is too generic a shape to trust on
// its own, so only the tree's root gets tagged directly — and only
// when some static or stack anchor points straight at it, which is
// what a std::map/std::set header's root pointer does. Every other
// node is tagged by reference, once its parent in the tree is already
// tagged and that parent's own left or right field names it.
type RBTreeNode[W core.Word] struct {
	tagIndex int
}

func NewRBTreeNode[W core.Word](tags *allocations.TagHolder) *RBTreeNode[W] {
	return &RBTreeNode[W]{tagIndex: tags.RegisterTag("map or set node")}
}

func (t *RBTreeNode[W]) Name() string { return "map or set node" }

func (t *RBTreeNode[W]) Phases() []allocations.Phase {
	return []allocations.Phase{allocations.SlowCheck}
}

func (t *RBTreeNode[W]) TagFromAllocation(ctx *allocations.TagContext[W], phase allocations.Phase, index int, alloc allocations.Allocation[W]) bool {
	if phase != allocations.SlowCheck {
		return false
	}
	if !t.structurallyPlausible(ctx, alloc) {
		return false
	}
	if !ctx.Graph.IsStaticallyAnchored(index) && !ctx.Graph.IsStackAnchored(index) {
		return false
	}
	return ctx.Tags.TagAllocation(index, t.tagIndex)
}

// structurallyPlausible checks the color/parent/left/right shape
// without regard to anchoring: at least one word of key/value past the
// four-word header, and left/right each null or a genuine allocation.
func (t *RBTreeNode[W]) structurallyPlausible(ctx *allocations.TagContext[W], alloc allocations.Allocation[W]) bool {
	wordSize := core.WordSize[W]()
	if alloc.Size < 5*wordSize {
		return false
	}
	reader := core.NewReader(ctx.Finder.AddressMap())
	left, ok := reader.ReadWord(alloc.Address+2*wordSize, ctx.ByteOrder)
	if !ok {
		return false
	}
	right, ok := reader.ReadWord(alloc.Address+3*wordSize, ctx.ByteOrder)
	if !ok {
		return false
	}
	return t.plausibleChild(ctx, left) && t.plausibleChild(ctx, right)
}

func (t *RBTreeNode[W]) plausibleChild(ctx *allocations.TagContext[W], addr W) bool {
	if addr == 0 {
		return true
	}
	_, ok := ctx.Finder.IndexOfAddress(addr)
	return ok
}

// TagFromReferenced extends the tag down from an already confirmed
// parent: if referrer is tagged as a tree node and its left or right
// field names alloc, alloc gets the same tag, letting recognition
// descend from the anchored root without requiring every interior
// node to be separately anchored.
func (t *RBTreeNode[W]) TagFromReferenced(ctx *allocations.TagContext[W], phase allocations.Phase, index int, alloc allocations.Allocation[W], referrerIndex int, referrer allocations.Allocation[W]) bool {
	if phase != allocations.SlowCheck {
		return false
	}
	if ctx.Tags.GetTagIndex(referrerIndex) != t.tagIndex {
		return false
	}
	if !t.structurallyPlausible(ctx, alloc) {
		return false
	}
	wordSize := core.WordSize[W]()
	reader := core.NewReader(ctx.Finder.AddressMap())
	left, ok := reader.ReadWord(referrer.Address+2*wordSize, ctx.ByteOrder)
	if ok && left == alloc.Address {
		return ctx.Tags.TagAllocation(index, t.tagIndex)
	}
	right, ok := reader.ReadWord(referrer.Address+3*wordSize, ctx.ByteOrder)
	if ok && right == alloc.Address {
		return ctx.Tags.TagAllocation(index, t.tagIndex)
	}
	return false
}
