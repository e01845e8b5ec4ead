// Copyright 2019 VMware, Inc.
// SPDX-License-Identifier: GPL-2.0

package taggers

import (
	"github.com/GDLynx/chap/allocations"
	"github.com/GDLynx/chap/core"
)

// ListNode recognizes a std::list node: a fixed two-word header (next,
// prev) followed by the element, where next and prev each resolve
// either to another list node or to the list's sentinel (which lives
// inside the list object itself and so isn't a heap allocation at
// all — in which case the pointer simply won't resolve to any
// allocation, which this tagger treats as consistent with being a
// node rather than as disqualifying).
//
// The next/prev shape alone is too common to trust by itself, so a
// node only gets tagged one of two ways: directly, when some static
// or stack anchor points straight at it (the list header's own
// sentinel holds the first and last node's addresses, so only those
// two nodes are ever anchored this way); or by reference, once its
// neighbor in the list is already tagged and that neighbor's own
// next/prev field names it. Tagging starts at the anchored ends and
// walks inward.
type ListNode[W core.Word] struct {
	tagIndex int
}

func NewListNode[W core.Word](tags *allocations.TagHolder) *ListNode[W] {
	return &ListNode[W]{tagIndex: tags.RegisterTag("list node")}
}

func (t *ListNode[W]) Name() string { return "list node" }

func (t *ListNode[W]) Phases() []allocations.Phase {
	return []allocations.Phase{allocations.SlowCheck}
}

func (t *ListNode[W]) TagFromAllocation(ctx *allocations.TagContext[W], phase allocations.Phase, index int, alloc allocations.Allocation[W]) bool {
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

// structurallyPlausible reports whether alloc's first two words look
// like a next/prev pair: each either resolves to another allocation or
// misses entirely (the sentinel case).
func (t *ListNode[W]) structurallyPlausible(ctx *allocations.TagContext[W], alloc allocations.Allocation[W]) bool {
	wordSize := core.WordSize[W]()
	if alloc.Size < 2*wordSize {
		return false
	}
	reader := core.NewReader(ctx.Finder.AddressMap())
	next, ok := reader.ReadWord(alloc.Address, ctx.ByteOrder)
	if !ok {
		return false
	}
	prev, ok := reader.ReadWord(alloc.Address+wordSize, ctx.ByteOrder)
	if !ok {
		return false
	}
	return t.resolvesLikeNode(ctx, next) && t.resolvesLikeNode(ctx, prev)
}

// resolvesLikeNode reports whether addr is a plausible next/prev
// value: anything nonzero. It may resolve to another allocation, or
// it may not resolve to any allocation at all — the list's sentinel
// lives inside the list object itself, not on the heap, so a pointer
// to the sentinel is expected to miss the allocation index entirely.
func (t *ListNode[W]) resolvesLikeNode(ctx *allocations.TagContext[W], addr W) bool {
	return addr != 0
}

// TagFromReferenced extends the list-node tag outward from an already
// confirmed neighbor: if referrer is itself tagged as a list node and
// its next or prev field names alloc, alloc gets the same tag, letting
// recognition walk the list from its anchored ends without requiring
// every interior node to be separately anchored.
func (t *ListNode[W]) TagFromReferenced(ctx *allocations.TagContext[W], phase allocations.Phase, index int, alloc allocations.Allocation[W], referrerIndex int, referrer allocations.Allocation[W]) bool {
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
	next, ok := reader.ReadWord(referrer.Address, ctx.ByteOrder)
	if ok && next == alloc.Address {
		return ctx.Tags.TagAllocation(index, t.tagIndex)
	}
	prev, ok := reader.ReadWord(referrer.Address+wordSize, ctx.ByteOrder)
	if ok && prev == alloc.Address {
		return ctx.Tags.TagAllocation(index, t.tagIndex)
	}
	return false
}
