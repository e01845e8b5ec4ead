// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package core

// Reader is a per-caller caching cursor over an AddressMap. Taggers
// scan allocation payloads a word at a time, almost always advancing
// forward through the same segment, so caching the most recent
// segment hit turns most lookups into a slice index instead of a
// binary search.
//
// A Reader is cheap to construct and must never be shared across
// goroutines — each caller (each tagger invocation, each graph-build
// worker) gets its own.
type Reader[W Word] struct {
	m *AddressMap[W]

	haveLast        bool
	lastMin, lastMax W
	lastImage       []byte
}

func NewReader[W Word](m *AddressMap[W]) *Reader[W] {
	return &Reader[W]{m: m}
}

// FindMappedMemoryImage behaves like AddressMap.FindMappedMemoryImage
// but consults and refreshes the single-entry cache first.
func (r *Reader[W]) FindMappedMemoryImage(addr W) ([]byte, W) {
	if r.haveLast && addr >= r.lastMin && addr < r.lastMax {
		off := addr - r.lastMin
		return r.lastImage[off:], r.lastMax - addr
	}
	img, n := r.m.FindMappedMemoryImage(addr)
	if n == 0 {
		r.haveLast = false
		return nil, 0
	}
	r.lastMin, r.lastMax, r.lastImage, r.haveLast = addr, addr+n, img, true
	return img, n
}

// ReadWord reads one word at addr through the cache.
func (r *Reader[W]) ReadWord(addr W, byteOrder ByteOrder) (W, bool) {
	img, n := r.FindMappedMemoryImage(addr)
	sz := WordSize[W]()
	if n < sz {
		return 0, false
	}
	return DecodeWord[W](img, byteOrder), true
}
