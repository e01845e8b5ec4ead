// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package moduledir

import "testing"

func TestDirectorySegmentAt(t *testing.T) {
	d := New[uint64]([]*Module[uint64]{
		{
			Path: "libssl.so.1.1",
			Segments: []Segment[uint64]{
				{Min: 0x2000, Max: 0x3000, Name: "libssl.so.1.1:.text"},
				{Min: 0x1000, Max: 0x1500, Name: "libssl.so.1.1:.rodata"},
			},
		},
		{
			Path: "libc.so.6",
			Segments: []Segment[uint64]{
				{Min: 0x5000, Max: 0x6000, Name: "libc.so.6:.text"},
			},
		},
	})

	seg, ok := d.SegmentAt(0x2500)
	if !ok || seg.Name != "libssl.so.1.1:.text" {
		t.Fatalf("SegmentAt(0x2500) = %+v, %v, want libssl text segment", seg, ok)
	}
	if _, ok := d.SegmentAt(0x1800); ok {
		t.Errorf("SegmentAt(0x1800) should miss (gap between segments)")
	}
	if _, ok := d.SegmentAt(0x7000); ok {
		t.Errorf("SegmentAt(0x7000) should miss (past every segment)")
	}
	if _, ok := d.SegmentAt(0x500); ok {
		t.Errorf("SegmentAt(0x500) should miss (before every segment)")
	}
}

func TestDirectoryInModule(t *testing.T) {
	d := New[uint64]([]*Module[uint64]{
		{
			Path: "libssl.so.1.1",
			Segments: []Segment[uint64]{
				{Min: 0x2000, Max: 0x3000, Name: "libssl.so.1.1:.text"},
			},
		},
	})
	if !d.InModule(0x2800, "libssl.so.1.1") {
		t.Errorf("InModule(0x2800, libssl) = false, want true")
	}
	if d.InModule(0x2800, "libc.so.6") {
		t.Errorf("InModule(0x2800, libc) = true, want false")
	}
	if d.InModule(0x9000, "libssl.so.1.1") {
		t.Errorf("InModule(0x9000, libssl) = true, want false")
	}
}
