// Copyright 2019 VMware, Inc.
// SPDX-License-Identifier: GPL-2.0

package taggers

import (
	"encoding/binary"
	"testing"

	"github.com/GDLynx/chap/allocations"
	"github.com/GDLynx/chap/anchor"
	"github.com/GDLynx/chap/core"
	"github.com/GDLynx/chap/moduledir"
	"github.com/GDLynx/chap/signature"
	"github.com/GDLynx/chap/threads"
)

// buildTreeFixture lays out a two-node red-black tree: a child node
// at the lower address and the root at the higher one. Only the root
// is anchored, and it names the child through its own left field — so
// the child can only ever be tagged by reference, from a referrer at
// a *higher* address/index than itself.
func buildTreeFixture(t *testing.T) (*allocations.Finder[uint64], allocations.AnchorRange[uint64]) {
	t.Helper()
	order := binary.LittleEndian
	const base = 0x80000
	const chunk0 = 0x30
	const chunk1 = 0x30

	buf := make([]byte, 0x70)
	order.PutUint64(buf[8:16], chunk0|prevInUse)

	address0 := uint64(base + 0x10) // child
	address1 := uint64(base + 0x40) // root

	order.PutUint64(buf[0x38:0x40], chunk1|prevInUse)
	order.PutUint64(buf[0x50:0x58], address0) // root.left -> child

	order.PutUint64(buf[0x68:0x70], address1) // static anchor -> root

	seg := core.NewSegment[uint64](base, base+uint64(len(buf)), core.Read|core.Write, "", buf)
	m := core.NewAddressMap([]*core.Segment[uint64]{seg})
	f := allocations.NewFinder[uint64](m, order, []allocations.HeapRange[uint64]{{Min: base, Max: base + 0x68}})
	return f, allocations.AnchorRange[uint64]{Min: base + 0x68, Max: base + 0x70}
}

func TestRBTreeNodePropagatesFromHigherAddressedReferrer(t *testing.T) {
	f, staticRange := buildTreeFixture(t)
	tm := threads.NewThreadMap[uint64](nil)
	g := allocations.NewGraph[uint64](f, binary.LittleEndian, []allocations.AnchorRange[uint64]{staticRange}, tm)
	tags := allocations.NewTagHolder(f.NumAllocations())
	ctx := &allocations.TagContext[uint64]{
		Finder:     f,
		Graph:      g,
		Tags:       tags,
		Modules:    moduledir.New[uint64](nil),
		Signatures: signature.New[uint64](),
		Anchors:    anchor.New[uint64](),
		ByteOrder:  binary.LittleEndian,
	}

	childIndex, ok := f.IndexOfAddress(f.AllocationAt(0).Address)
	if !ok {
		t.Fatalf("expected child allocation to be found")
	}
	rootIndex, ok := f.IndexOfAddress(f.AllocationAt(1).Address)
	if !ok {
		t.Fatalf("expected root allocation to be found")
	}
	if childIndex != 0 || rootIndex != 1 {
		t.Fatalf("expected child/root at indices 0/1, got %d/%d", childIndex, rootIndex)
	}

	runner := allocations.NewTaggerRunner(ctx)
	runner.RegisterTagger(NewRBTreeNode[uint64](tags))
	runner.ResolveAllAllocationTags()

	if tags.TagName(tags.GetTagIndex(rootIndex)) != "map or set node" {
		t.Fatalf("root tag = %q, want map or set node", tags.TagName(tags.GetTagIndex(rootIndex)))
	}
	if tags.TagName(tags.GetTagIndex(childIndex)) != "map or set node" {
		t.Fatalf("child tag = %q, want map or set node (propagation from a higher-addressed referrer should still succeed)", tags.TagName(tags.GetTagIndex(childIndex)))
	}
}
