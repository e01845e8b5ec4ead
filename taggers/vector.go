// Copyright 2019 VMware, Inc.
// SPDX-License-Identifier: GPL-2.0

// Package taggers holds the concrete pattern recognizers: one file
// per kind of allocation the engine knows how to name.
package taggers

import (
	"github.com/GDLynx/chap/allocations"
	"github.com/GDLynx/chap/core"
)

// VectorBody recognizes the backing-store allocation of a
// std::vector-like container: three pointer-sized fields (start, use
// limit, capacity limit) anchored somewhere that points at this
// allocation's address as the start field.
//
// It runs almost entirely in the weak phase: nothing about a vector
// body's own bytes is distinctive (the engine doesn't know the
// element type), so recognition depends on finding the vector header
// that anchors it rather than on the body itself. Anything with
// better evidence — a deque block, say — should get first refusal,
// which is why VectorBody only participates in WeakCheck for
// TagFromAllocation and leaves the cheaper phases as pure rejects of
// implausibly small candidates.
type VectorBody[W core.Word] struct {
	tagIndex int

	// consumed records, per referrer allocation, the offsets of
	// word-triples already claimed by a successful embedded match —
	// the spec's "skip the next two words in A to avoid overlapping
	// matches". TagFromReferenced is invoked once per (body, referrer)
	// edge rather than once per referrer with its whole outgoing set,
	// so this state has to survive across calls to keep two
	// overlapping candidate triples in the same referrer from both
	// being accepted.
	consumed map[int][]W
}

func NewVectorBody[W core.Word](tags *allocations.TagHolder) *VectorBody[W] {
	return &VectorBody[W]{tagIndex: tags.RegisterTag("vector body"), consumed: make(map[int][]W)}
}

func (t *VectorBody[W]) Name() string { return "vector body" }

func (t *VectorBody[W]) Phases() []allocations.Phase {
	return []allocations.Phase{allocations.QuickInitialCheck, allocations.WeakCheck}
}

func (t *VectorBody[W]) TagFromAllocation(ctx *allocations.TagContext[W], phase allocations.Phase, index int, alloc allocations.Allocation[W]) bool {
	switch phase {
	case allocations.QuickInitialCheck:
		wordSize := core.WordSize[W]()
		return alloc.Size < 2*wordSize
	case allocations.WeakCheck:
		if t.checkAnchorsIn(ctx, index, alloc, ctx.Graph.GetStaticAnchors(index)) {
			return true
		}
		return t.checkAnchorsIn(ctx, index, alloc, ctx.Graph.GetStackAnchors(index))
	default:
		return false
	}
}

func (t *VectorBody[W]) TagFromReferenced(ctx *allocations.TagContext[W], phase allocations.Phase, index int, alloc allocations.Allocation[W], referrerIndex int, referrer allocations.Allocation[W]) bool {
	switch phase {
	case allocations.QuickInitialCheck:
		wordSize := core.WordSize[W]()
		return alloc.Size < 3*wordSize
	case allocations.WeakCheck:
		t.checkEmbeddedVector(ctx, referrerIndex, referrer, index, alloc)
		return false
	default:
		return false
	}
}

// checkAnchorsIn looks for a triple of words — start, use limit,
// capacity limit — at one of the given anchor addresses that
// identifies alloc as its backing body. The anchor-address ordering
// of the anchor slices (see allocations.Graph) is what makes this
// deterministic when more than one anchor could plausibly match; the
// first one found wins and is tagged immediately.
func (t *VectorBody[W]) checkAnchorsIn(ctx *allocations.TagContext[W], bodyIndex int, body allocations.Allocation[W], anchors []W) bool {
	if anchors == nil {
		return false
	}
	bodyAddress := body.Address
	bodyLimit := bodyAddress + body.Size
	wordSize := core.WordSize[W]()
	reader := core.NewReader(ctx.Finder.AddressMap())

	matched := false
	for i := range anchors {
		anchor := anchors[i]
		if !ctx.PreferFirstAnchor {
			anchor = anchors[len(anchors)-1-i]
		}
		img, n := reader.FindMappedMemoryImage(anchor)
		if n < 3*wordSize {
			continue
		}
		start := core.DecodeWord[W](img, ctx.ByteOrder)
		if start != bodyAddress {
			continue
		}
		useLimit := core.DecodeWord[W](img[wordSize:], ctx.ByteOrder)
		if useLimit < bodyAddress {
			continue
		}
		capacityLimit := core.DecodeWord[W](img[2*wordSize:], ctx.ByteOrder)
		if capacityLimit < useLimit || capacityLimit > bodyLimit || capacityLimit == bodyAddress {
			continue
		}
		ctx.Tags.TagAllocation(bodyIndex, t.tagIndex)
		matched = true
		break
	}
	return matched
}

// checkEmbeddedVector handles the case where the vector header
// itself lives inside another allocation (a struct with a std::vector
// member, say) rather than being anchored directly. referrer's
// outgoing edges were already computed when the graph was built; we
// re-scan its words here because TagFromReferenced only tells us
// which allocation referenced body, not at what offset.
func (t *VectorBody[W]) checkEmbeddedVector(ctx *allocations.TagContext[W], referrerIndex int, referrer allocations.Allocation[W], bodyIndex int, body allocations.Allocation[W]) {
	if ctx.Tags.IsTagged(bodyIndex) {
		return
	}
	image := allocations.NewContiguousImage[W](ctx.Finder.AddressMap(), referrer)
	wordSize := core.WordSize[W]()
	bodyAddress := body.Address
	bodyLimit := bodyAddress + body.Size

	limit := image.OffsetLimit()
	if limit < 3*wordSize {
		return
	}
	limit -= 2 * wordSize
	for off := image.FirstOffset(); off < limit; off += wordSize {
		if t.isConsumed(referrerIndex, off, wordSize) {
			continue
		}
		start, ok := image.ReadWord(off, ctx.ByteOrder)
		if !ok || start != bodyAddress {
			continue
		}
		useLimit, ok := image.ReadWord(off+wordSize, ctx.ByteOrder)
		if !ok || useLimit < bodyAddress {
			continue
		}
		capacityLimit, ok := image.ReadWord(off+2*wordSize, ctx.ByteOrder)
		if !ok || capacityLimit < useLimit || capacityLimit > bodyLimit || capacityLimit == bodyAddress {
			continue
		}
		ctx.Tags.TagAllocation(bodyIndex, t.tagIndex)
		t.consumed[referrerIndex] = append(t.consumed[referrerIndex], off)
		return
	}
}

// isConsumed reports whether off falls within a previously matched
// triple's three words in referrerIndex, so a second, overlapping
// candidate can't also claim it.
func (t *VectorBody[W]) isConsumed(referrerIndex int, off, wordSize W) bool {
	for _, c := range t.consumed[referrerIndex] {
		if off >= c && off < c+3*wordSize {
			return true
		}
	}
	return false
}
