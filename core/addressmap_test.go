// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package core

import "testing"

func TestFindMappedMemoryImage(t *testing.T) {
	seg := NewSegment[uint64](0x1000, 0x1010, Read|Write, "", make([]byte, 0x10))
	m := NewAddressMap([]*Segment[uint64]{seg})

	img, n := m.FindMappedMemoryImage(0x1004)
	if n != 0xc {
		t.Fatalf("got lenMapped=%#x, want 0xc", n)
	}
	if len(img) < int(n) {
		t.Fatalf("image too short: %d", len(img))
	}

	// S6: read of an unmapped address reports lenMapped=0, not an error.
	_, n = m.FindMappedMemoryImage(0x2000)
	if n != 0 {
		t.Fatalf("got lenMapped=%#x for unmapped address, want 0", n)
	}
}

func TestFindMappedMemoryImageStopsAtRangeBoundary(t *testing.T) {
	a := NewSegment[uint64](0x1000, 0x1010, Read, "", make([]byte, 0x10))
	b := NewSegment[uint64](0x1010, 0x1020, Read, "", make([]byte, 0x10))
	m := NewAddressMap([]*Segment[uint64]{a, b})

	_, n := m.FindMappedMemoryImage(0x1008)
	if n != 0x8 {
		t.Fatalf("got lenMapped=%#x, want 0x8 (should not span into next range)", n)
	}
}

func TestReaderCachesLastHit(t *testing.T) {
	seg := NewSegment[uint64](0x1000, 0x1100, Read, "", make([]byte, 0x100))
	m := NewAddressMap([]*Segment[uint64]{seg})
	r := NewReader(m)

	if _, n := r.FindMappedMemoryImage(0x1000); n == 0 {
		t.Fatalf("expected hit")
	}
	if !r.haveLast {
		t.Fatalf("expected reader to cache the hit")
	}
	if _, n := r.FindMappedMemoryImage(0x1080); n == 0 {
		t.Fatalf("expected cached hit to cover nearby address")
	}
}

func TestWordSize(t *testing.T) {
	if got := WordSize[uint32](); got != 4 {
		t.Errorf("WordSize[uint32]() = %d, want 4", got)
	}
	if got := WordSize[uint64](); got != 8 {
		t.Errorf("WordSize[uint64]() = %d, want 8", got)
	}
}
