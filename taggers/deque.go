// Copyright 2019 VMware, Inc.
// SPDX-License-Identifier: GPL-2.0

package taggers

import (
	"github.com/GDLynx/chap/allocations"
	"github.com/GDLynx/chap/core"
)

// DequeBlock recognizes one fixed-size chunk of a std::deque's
// storage: referenced from a "deque map" allocation (an array of
// block pointers) at some index, itself a plain array of elements
// with no header of its own. Because a deque block can look exactly
// like a vector body (both are headerless arrays), this tagger must
// run — and is registered to run — before VectorBody's weak phase
// gets a chance at the same allocation.
//
// A confirmed block match tags both levels: the block itself "deque
// block", and the map allocation that referenced it "deque map" — the
// map is otherwise just an anonymous array of pointers with no shape
// of its own to recognize it by.
type DequeBlock[W core.Word] struct {
	tagIndex    int
	mapTagIndex int
}

func NewDequeBlock[W core.Word](tags *allocations.TagHolder) *DequeBlock[W] {
	return &DequeBlock[W]{
		tagIndex:    tags.RegisterTag("deque block"),
		mapTagIndex: tags.RegisterTag("deque map"),
	}
}

func (t *DequeBlock[W]) Name() string { return "deque block" }

func (t *DequeBlock[W]) Phases() []allocations.Phase {
	return []allocations.Phase{allocations.MediumCheck}
}

func (t *DequeBlock[W]) TagFromAllocation(ctx *allocations.TagContext[W], phase allocations.Phase, index int, alloc allocations.Allocation[W]) bool {
	return false
}

// TagFromReferenced tags alloc as a deque block if referrer looks like
// a "deque map": between 2 and 64 words long, with one word exactly
// alloc's address. The referrer's other words are not examined.
func (t *DequeBlock[W]) TagFromReferenced(ctx *allocations.TagContext[W], phase allocations.Phase, index int, alloc allocations.Allocation[W], referrerIndex int, referrer allocations.Allocation[W]) bool {
	if phase != allocations.MediumCheck {
		return false
	}
	wordSize := core.WordSize[W]()
	if referrer.Size < 2*wordSize || referrer.Size > 64*wordSize {
		return false
	}
	image := allocations.NewContiguousImage[W](ctx.Finder.AddressMap(), referrer)
	found := false
	for off := image.FirstOffset(); off+wordSize <= image.OffsetLimit(); off += wordSize {
		word, ok := image.ReadWord(off, ctx.ByteOrder)
		if ok && word == alloc.Address {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	tagged := ctx.Tags.TagAllocation(index, t.tagIndex)
	if tagged {
		ctx.Tags.TagAllocation(referrerIndex, t.mapTagIndex)
	}
	return tagged
}
