// Copyright 2019 VMware, Inc.
// SPDX-License-Identifier: GPL-2.0

package taggers

import (
	"bytes"

	"github.com/GDLynx/chap/allocations"
	"github.com/GDLynx/chap/core"
)

// LongString recognizes an allocation whose payload starts with plain
// text that doesn't fit in a small-string-optimized field: a
// NUL-terminated run of printable bytes at the start of the
// allocation, too long to be the inline buffer of a short string.
// Only the bytes before the first NUL are checked; whatever follows
// the NUL is not examined.
//
// The byte shape alone is recognizable in any buffer, C++ or not, so
// this tagger only trusts it once the std::string long-form layout it
// matches is actually published by a loaded C++ runtime module (see
// moduledir.Directory.PublishesCppRuntime) — without that, a long
// printable run is just as likely to be someone's log buffer.
//
// MinLongStringLength is the default minimum, counting the NUL, used
// when TagContext.MinLongStringLength is zero; it is unrelated to the
// 77-byte truncation point of the LongString describer. A shorter
// NUL-terminated run is still a string, just not one this recognizer
// bothers distinguishing from any other character-buffer allocation.
const MinLongStringLength = 24

type LongString[W core.Word] struct {
	tagIndex int
}

func NewLongString[W core.Word](tags *allocations.TagHolder) *LongString[W] {
	return &LongString[W]{tagIndex: tags.RegisterTag("LongString")}
}

func (t *LongString[W]) Name() string { return "LongString" }

func (t *LongString[W]) Phases() []allocations.Phase {
	return []allocations.Phase{allocations.MediumCheck}
}

func (t *LongString[W]) TagFromAllocation(ctx *allocations.TagContext[W], phase allocations.Phase, index int, alloc allocations.Allocation[W]) bool {
	if phase != allocations.MediumCheck {
		return false
	}
	if !ctx.Modules.PublishesCppRuntime() {
		return false
	}
	minLength := ctx.MinLongStringLength
	if minLength <= 0 {
		minLength = MinLongStringLength
	}
	if alloc.Size < W(minLength) {
		return false
	}
	image := allocations.NewContiguousImage[W](ctx.Finder.AddressMap(), alloc)
	data := image.Bytes()

	nul := bytes.IndexByte(data, 0)
	if nul < 0 {
		return false
	}
	if W(nul) < W(minLength)-1 {
		return false
	}
	for _, b := range data[:nul] {
		if b < 0x09 || (b > 0x0d && b < 0x20) || b == 0x7f {
			return false
		}
	}
	return ctx.Tags.TagAllocation(index, t.tagIndex)
}

func (t *LongString[W]) TagFromReferenced(ctx *allocations.TagContext[W], phase allocations.Phase, index int, alloc allocations.Allocation[W], referrerIndex int, referrer allocations.Allocation[W]) bool {
	return false
}
