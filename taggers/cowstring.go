// Copyright 2019 VMware, Inc.
// SPDX-License-Identifier: GPL-2.0

package taggers

import (
	"github.com/GDLynx/chap/allocations"
	"github.com/GDLynx/chap/core"
)

// cowStringHeaderWords is the number of header fields (length,
// capacity, refcount) that precede the character data in a
// copy-on-write std::string representation — the pre-C++11 libstdc++
// layout, where referrers hold a pointer into the middle of the
// allocation rather than to its start.
const cowStringHeaderWords = 3

// COWString recognizes a copy-on-write string body: referenced not at
// its own start but at a fixed offset past a length/capacity/refcount
// header, since the referring pointer (the string's data()) points
// straight at the character data.
type COWString[W core.Word] struct {
	tagIndex int
}

func NewCOWString[W core.Word](tags *allocations.TagHolder) *COWString[W] {
	return &COWString[W]{tagIndex: tags.RegisterTag("COWString")}
}

func (t *COWString[W]) Name() string { return "COWString" }

func (t *COWString[W]) Phases() []allocations.Phase {
	return []allocations.Phase{allocations.MediumCheck}
}

func (t *COWString[W]) TagFromAllocation(ctx *allocations.TagContext[W], phase allocations.Phase, index int, alloc allocations.Allocation[W]) bool {
	return false
}

// TagFromReferenced tags alloc as a COWString body when referrer
// holds, at some word offset, a pointer landing exactly
// cowStringHeaderWords words into alloc — past the refcount header,
// at the character data.
func (t *COWString[W]) TagFromReferenced(ctx *allocations.TagContext[W], phase allocations.Phase, index int, alloc allocations.Allocation[W], referrerIndex int, referrer allocations.Allocation[W]) bool {
	if phase != allocations.MediumCheck {
		return false
	}
	wordSize := core.WordSize[W]()
	headerSize := W(cowStringHeaderWords) * wordSize
	if alloc.Size <= headerSize {
		return false
	}
	dataAddress := alloc.Address + headerSize

	image := allocations.NewContiguousImage[W](ctx.Finder.AddressMap(), referrer)
	for off := image.FirstOffset(); off+wordSize <= image.OffsetLimit(); off += wordSize {
		word, ok := image.ReadWord(off, ctx.ByteOrder)
		if ok && word == dataAddress {
			return ctx.Tags.TagAllocation(index, t.tagIndex)
		}
	}
	return false
}
