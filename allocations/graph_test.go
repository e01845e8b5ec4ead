// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package allocations

import (
	"encoding/binary"
	"testing"

	"github.com/GDLynx/chap/core"
	"github.com/GDLynx/chap/threads"
)

// buildChainImage lays out three adjacent used chunks where chunk 0's
// payload points at chunk 1's payload address, and nothing else
// points anywhere, so the graph has exactly one edge.
func buildChainImage(t *testing.T) (*Finder[uint64], uint64, uint64, uint64) {
	t.Helper()
	order := binary.LittleEndian
	const base = 0x40000
	const chunkSize = 0x20 // 16-byte header + 16-byte payload

	buf := make([]byte, 3*chunkSize+8)
	order.PutUint64(buf[8:16], chunkSize|prevInUse)
	order.PutUint64(buf[chunkSize+8:chunkSize+16], chunkSize|prevInUse)
	order.PutUint64(buf[2*chunkSize+8:2*chunkSize+16], chunkSize|prevInUse)

	addr0 := uint64(base + 16)
	addr1 := uint64(base + chunkSize + 16)
	addr2 := uint64(base + 2*chunkSize + 16)
	order.PutUint64(buf[16:24], addr1) // chunk0's payload points at chunk1

	seg := core.NewSegment[uint64](base, base+uint64(len(buf)), core.Read|core.Write, "", buf)
	m := core.NewAddressMap([]*core.Segment[uint64]{seg})
	f := NewFinder[uint64](m, order, []HeapRange[uint64]{{Min: base, Max: base + uint64(len(buf))}})
	return f, addr0, addr1, addr2
}

func TestGraphOutgoingAndIncomingEdges(t *testing.T) {
	f, _, addr1, _ := buildChainImage(t)
	if f.NumAllocations() != 3 {
		t.Fatalf("got %d allocations, want 3", f.NumAllocations())
	}
	tm := threads.NewThreadMap[uint64](nil)
	g := NewGraph[uint64](f, binary.LittleEndian, nil, tm)

	idx1, ok := f.IndexOfAddress(addr1)
	if !ok {
		t.Fatalf("expected allocation at %#x", addr1)
	}
	out0 := g.OutgoingEdges(0)
	if len(out0) != 1 || out0[0] != idx1 {
		t.Errorf("OutgoingEdges(0) = %v, want [%d]", out0, idx1)
	}
	if len(g.OutgoingEdges(idx1)) != 0 {
		t.Errorf("OutgoingEdges(%d) = %v, want none", idx1, g.OutgoingEdges(idx1))
	}

	in1 := g.IncomingEdges(idx1)
	if len(in1) != 1 || in1[0] != 0 {
		t.Errorf("IncomingEdges(%d) = %v, want [0]", idx1, in1)
	}
	if len(g.IncomingEdges(0)) != 0 {
		t.Errorf("IncomingEdges(0) = %v, want none", g.IncomingEdges(0))
	}
}

func TestGraphStaticAnchorsKeepRawAddress(t *testing.T) {
	f, addr0, _, _ := buildChainImage(t)
	tm := threads.NewThreadMap[uint64](nil)

	// Treat chunk0's own payload word (which holds addr1) as a static
	// anchor range; chunk1 should end up statically anchored, and the
	// anchor recorded should be the raw address holding the pointer,
	// not chunk0's own allocation index.
	staticRanges := []AnchorRange[uint64]{{Min: addr0, Max: addr0 + 8}}
	g := NewGraph[uint64](f, binary.LittleEndian, staticRanges, tm)

	anchoredIdx, ok := f.IndexOfAddress(mustOutgoingTarget(t, f, g))
	if !ok {
		t.Fatalf("expected the outgoing target to resolve to an allocation")
	}
	anchors := g.GetStaticAnchors(anchoredIdx)
	if len(anchors) != 1 || anchors[0] != addr0 {
		t.Fatalf("GetStaticAnchors(%d) = %v, want [%#x]", anchoredIdx, anchors, addr0)
	}
	if !g.IsStaticallyAnchored(anchoredIdx) {
		t.Errorf("IsStaticallyAnchored(%d) = false, want true", anchoredIdx)
	}
	if g.IsStaticallyAnchored(0) {
		t.Errorf("IsStaticallyAnchored(0) = true, want false")
	}
}

func mustOutgoingTarget(t *testing.T, f *Finder[uint64], g *Graph[uint64]) uint64 {
	t.Helper()
	out := g.OutgoingEdges(0)
	if len(out) != 1 {
		t.Fatalf("expected exactly one outgoing edge from allocation 0, got %v", out)
	}
	return f.AllocationAt(out[0]).Address
}

func TestGraphRegisterAnchors(t *testing.T) {
	f, addr0, _, _ := buildChainImage(t)
	idx0, _ := f.IndexOfAddress(addr0)

	tm := threads.NewThreadMap[uint64]([]*threads.Thread[uint64]{
		{
			ThreadNum:  1,
			StackBase:  0,
			StackLimit: 0,
			Registers:  []threads.Register[uint64]{{Name: "rax", Value: addr0}},
		},
	})
	g := NewGraph[uint64](f, binary.LittleEndian, nil, tm)

	regs := g.GetRegisterAnchors()
	if len(regs) != 1 || regs[0] != idx0 {
		t.Fatalf("GetRegisterAnchors() = %v, want [%d]", regs, idx0)
	}
	if !g.IsRegisterAnchored(idx0) {
		t.Errorf("IsRegisterAnchored(%d) = false, want true", idx0)
	}
}
