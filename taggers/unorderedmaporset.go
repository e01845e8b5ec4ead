// Copyright 2019 VMware, Inc.
// SPDX-License-Identifier: GPL-2.0

package taggers

import (
	"github.com/GDLynx/chap/allocations"
	"github.com/GDLynx/chap/core"
)

// HashTableBuckets recognizes the bucket array of an
// unordered_map/unordered_set: an array of node pointers, most of
// them null, where at least one non-null entry points at an
// allocation whose own first word (its "next" link) is consistent
// with it being the first node of that bucket's chain — the same
// bucket/first-node cross-check the original engine performs to tell
// a bucket array apart from any other array of mostly-null pointers.
type HashTableBuckets[W core.Word] struct {
	tagIndex int
}

func NewHashTableBuckets[W core.Word](tags *allocations.TagHolder) *HashTableBuckets[W] {
	return &HashTableBuckets[W]{tagIndex: tags.RegisterTag("unordered map or set buckets")}
}

func (t *HashTableBuckets[W]) Name() string { return "unordered map or set buckets" }

func (t *HashTableBuckets[W]) Phases() []allocations.Phase {
	return []allocations.Phase{allocations.SlowCheck}
}

func (t *HashTableBuckets[W]) TagFromAllocation(ctx *allocations.TagContext[W], phase allocations.Phase, index int, alloc allocations.Allocation[W]) bool {
	if phase != allocations.SlowCheck {
		return false
	}
	wordSize := core.WordSize[W]()
	if alloc.Size < 2*wordSize {
		return false
	}
	image := allocations.NewContiguousImage[W](ctx.Finder.AddressMap(), alloc)
	reader := core.NewReader(ctx.Finder.AddressMap())

	crossChecked := false
	for off := image.FirstOffset(); off+wordSize <= image.OffsetLimit(); off += wordSize {
		bucket, ok := image.ReadWord(off, ctx.ByteOrder)
		if !ok || bucket == 0 {
			continue
		}
		firstNodeIndex, ok := ctx.Finder.IndexOfAddress(bucket)
		if !ok {
			return false // a non-null, non-allocation entry disqualifies this as a bucket array
		}
		firstNode := ctx.Finder.AllocationAt(firstNodeIndex)
		if firstNode.Size < wordSize {
			return false
		}
		// The first node's own "next" field must itself be null or
		// another allocation — the cross-check.
		next, ok := reader.ReadWord(firstNode.Address, ctx.ByteOrder)
		if !ok {
			continue
		}
		_, nextIsAllocation := ctx.Finder.IndexOfAddress(next)
		if next == 0 || nextIsAllocation {
			crossChecked = true
		}
	}
	if !crossChecked {
		return false
	}
	return ctx.Tags.TagAllocation(index, t.tagIndex)
}

func (t *HashTableBuckets[W]) TagFromReferenced(ctx *allocations.TagContext[W], phase allocations.Phase, index int, alloc allocations.Allocation[W], referrerIndex int, referrer allocations.Allocation[W]) bool {
	return false
}
