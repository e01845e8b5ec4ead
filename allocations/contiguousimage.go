// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package allocations

import "github.com/GDLynx/chap/core"

// ContiguousImage is a tagger's working view of one allocation's
// payload: the bytes actually present in the dump for that
// allocation, addressed by offset from the allocation's start rather
// than by absolute address. An allocation whose mapping was
// truncated (the dump didn't capture all of it) yields a shorter
// image than alloc.Size; taggers must check OffsetLimit, not assume
// the full declared size is readable.
type ContiguousImage[W core.Word] struct {
	allocation Allocation[W]
	image      []byte
}

// NewContiguousImage builds the image for alloc by consulting
// addressMap once, up front, so that every subsequent field read a
// tagger performs is a plain slice index.
func NewContiguousImage[W core.Word](addressMap *core.AddressMap[W], alloc Allocation[W]) *ContiguousImage[W] {
	img, n := addressMap.FindMappedMemoryImage(alloc.Address)
	limit := alloc.Size
	if n < limit {
		limit = n
	}
	return &ContiguousImage[W]{allocation: alloc, image: img[:limit]}
}

// FirstOffset is always 0; it exists so callers can write loops as
// [FirstOffset, OffsetLimit) without a special case.
func (ci *ContiguousImage[W]) FirstOffset() W { return 0 }

// OffsetLimit returns how many bytes of the allocation are actually
// present in the image.
func (ci *ContiguousImage[W]) OffsetLimit() W { return W(len(ci.image)) }

// ReadWord reads one word at the given offset into the allocation.
func (ci *ContiguousImage[W]) ReadWord(offset W, byteOrder core.ByteOrder) (W, bool) {
	sz := core.WordSize[W]()
	if offset+sz > W(len(ci.image)) || offset+sz < offset {
		return 0, false
	}
	return core.DecodeWord[W](ci.image[offset:], byteOrder), true
}

// Bytes returns the raw image, for describers that need to render
// string-like content rather than decode words.
func (ci *ContiguousImage[W]) Bytes() []byte { return ci.image }
