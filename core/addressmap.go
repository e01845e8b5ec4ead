// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package core

import "sort"

// AddressMap is the addressable view over a dump: a read-only,
// immutable-after-construction index of the segments a SegmentSource
// reported, supporting the one query the rest of the engine needs
// on its hot path: "what's mapped starting at this address".
//
// Unlike the page-table-of-page-tables the teacher uses for a live
// inferior (which pays off when pages are added incrementally),
// a post-mortem snapshot's segment list is static and usually a few
// hundred entries, so a sorted slice plus binary search is simpler
// and equally allocation-free per query.
type AddressMap[W Word] struct {
	segments []*Segment[W] // sorted ascending by Min, disjoint
}

// NewAddressMap builds an AddressMap from the given segments. Segments
// are sorted by address; the caller is responsible for ensuring they
// are disjoint (VirtualMemoryPartition is where overlap gets policed
// for claimed ranges; AddressMap itself just indexes what it's given).
func NewAddressMap[W Word](segments []*Segment[W]) *AddressMap[W] {
	sorted := make([]*Segment[W], len(segments))
	copy(sorted, segments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })
	return &AddressMap[W]{segments: sorted}
}

// Segments returns the backing segments in address order.
func (m *AddressMap[W]) Segments() []*Segment[W] { return m.segments }

// FindMappedMemoryImage returns the bytes backing addr and the number
// of contiguous bytes available starting at addr. If addr is not
// mapped, it returns (nil, 0); callers must treat that as "this word
// is not a reference", never as an error.
func (m *AddressMap[W]) FindMappedMemoryImage(addr W) ([]byte, W) {
	i := m.indexOf(addr)
	if i < 0 {
		return nil, 0
	}
	return m.segments[i].imageAt(addr)
}

// indexOf returns the index of the segment containing addr, or -1.
func (m *AddressMap[W]) indexOf(addr W) int {
	segs := m.segments
	lo, hi := 0, len(segs)
	for lo < hi {
		mid := (lo + hi) / 2
		if segs[mid].Max <= addr {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(segs) && segs[lo].Contains(addr) {
		return lo
	}
	return -1
}

// ReadWord reads one pointer-sized word at addr, LSB-order per
// byteOrder. ok is false if fewer than WordSize[W]() bytes are mapped
// starting at addr — the NotMapped case from spec §7.
func (m *AddressMap[W]) ReadWord(addr W, byteOrder ByteOrder) (W, bool) {
	img, n := m.FindMappedMemoryImage(addr)
	sz := WordSize[W]()
	if n < sz {
		return 0, false
	}
	return DecodeWord[W](img, byteOrder), true
}

// ByteOrder is the subset of encoding/binary.ByteOrder the engine
// needs; kept narrow so callers can pass core.Architecture.ByteOrder
// directly.
type ByteOrder interface {
	Uint32([]byte) uint32
	Uint64([]byte) uint64
}

// DecodeWord decodes one word from the front of img. Exported so
// callers holding their own byte slices (ContiguousImage, in
// particular) don't need to round-trip through an AddressMap to
// decode a word they already have in hand.
func DecodeWord[W Word](img []byte, order ByteOrder) W {
	var z W
	switch any(z).(type) {
	case uint32:
		return W(order.Uint32(img))
	default:
		return W(order.Uint64(img))
	}
}
