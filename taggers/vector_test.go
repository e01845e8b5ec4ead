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

// buildVectorFixture lays out a glibc-style heap with a vector header
// (three words: start, use-limit, capacity-limit) followed by the
// vector body it points at.
func buildVectorFixture(t *testing.T) (*allocations.Finder[uint64], *allocations.Graph[uint64]) {
	t.Helper()
	order := binary.LittleEndian
	const base = 0x10000
	const headerChunk = 0x30 // chunk header (16) + 3 words (24) -> round up
	const bodyChunk = 0x30   // usable size 0x28: room for 5 words

	buf := make([]byte, headerChunk+bodyChunk+8)
	order.PutUint64(buf[8:16], uint64(headerChunk)|prevInUse)
	order.PutUint64(buf[headerChunk+8:headerChunk+16], uint64(bodyChunk)|prevInUse)

	headerPayload := base + 16
	bodyPayload := base + headerChunk + 16

	order.PutUint64(buf[16:24], uint64(bodyPayload))      // start
	order.PutUint64(buf[24:32], uint64(bodyPayload+0x20)) // use limit
	order.PutUint64(buf[32:40], uint64(bodyPayload+0x28)) // capacity limit: the body's end

	seg := core.NewSegment[uint64](base, base+uint64(len(buf)), core.Read|core.Write, "", buf)
	m := core.NewAddressMap([]*core.Segment[uint64]{seg})

	f := allocations.NewFinder[uint64](m, order, []allocations.HeapRange[uint64]{{Min: base, Max: base + uint64(len(buf))}})

	staticRanges := []allocations.AnchorRange[uint64]{{Min: base + 16, Max: base + 16 + 8}} // header's own first word, treated as a static anchor
	tm := threads.NewThreadMap[uint64](nil)
	g := allocations.NewGraph[uint64](f, order, staticRanges, tm)

	_ = headerPayload
	return f, g
}

// buildOverlappingVectorFixture builds a referrer allocation A whose
// four-word payload contains two candidate vector-body triples that
// share their middle word: offset 0 yields a genuine (start1,
// useLimit1, capacityLimit1) triple for body1, and useLimit1 doubles
// as the start word of a second, offset-by-one-word candidate triple
// that would otherwise also match body2.
func buildOverlappingVectorFixture(t *testing.T) (*allocations.Finder[uint64], *allocations.Graph[uint64]) {
	t.Helper()
	order := binary.LittleEndian
	const base = 0x80000

	buf := make([]byte, 0x200)

	// A: header (16 bytes) + 4 payload words, chunk size 0x30.
	const chunkA = 0x30
	order.PutUint64(buf[8:16], uint64(chunkA)|prevInUse)

	// body1: placed right after A, generously sized so its capacity
	// limit can legitimately reach past body2's address.
	const offset1 = chunkA
	const chunk1 = 0x100
	order.PutUint64(buf[offset1+8:offset1+16], uint64(chunk1)|prevInUse)
	body1Address := uint64(base + offset1 + 16)
	body1Limit := body1Address + (uint64(chunk1) - 8)

	// body2: a second, independent chunk embedded inside body1's own
	// address range — its own HeapRange starts exactly at its header,
	// so the finder walks it as a distinct allocation regardless of
	// where it physically falls relative to body1.
	const offset2 = 0x80
	const chunk2 = 0xE0
	order.PutUint64(buf[offset2+8:offset2+16], uint64(chunk2)|prevInUse)
	body2Address := uint64(base + offset2 + 16)
	body2Limit := body2Address + (uint64(chunk2) - 8)

	if body2Address <= body1Address || body2Address > body1Limit {
		t.Fatalf("fixture invariant violated: body2 address %#x not within (body1 %#x, body1 limit %#x]", body2Address, body1Address, body1Limit)
	}

	capacityLimit1 := body1Address + 0xc0 // within (body2Address, body1Limit]
	if capacityLimit1 < body2Address || capacityLimit1 > body1Limit {
		t.Fatalf("fixture invariant violated: capacityLimit1 %#x not within [body2 %#x, body1 limit %#x]", capacityLimit1, body2Address, body1Limit)
	}
	useLimit2 := capacityLimit1
	capacityLimit2 := body2Address + 0xa0 // within [useLimit2, body2 limit]
	if capacityLimit2 < useLimit2 || capacityLimit2 > body2Limit {
		t.Fatalf("fixture invariant violated: capacityLimit2 %#x not within [useLimit2 %#x, body2 limit %#x]", capacityLimit2, useLimit2, body2Limit)
	}

	order.PutUint64(buf[16:24], body1Address)   // word0: start1
	order.PutUint64(buf[24:32], body2Address)   // word1: useLimit1 and start2
	order.PutUint64(buf[32:40], capacityLimit1) // word2: capacityLimit1 and useLimit2
	order.PutUint64(buf[40:48], capacityLimit2) // word3: capacityLimit2

	seg := core.NewSegment[uint64](base, base+uint64(len(buf)), core.Read|core.Write, "", buf)
	m := core.NewAddressMap([]*core.Segment[uint64]{seg})

	ranges := []allocations.HeapRange[uint64]{
		{Min: base, Max: base + chunkA + chunk1},
		{Min: base + offset2, Max: base + offset2 + chunk2},
	}
	f := allocations.NewFinder[uint64](m, order, ranges)

	tm := threads.NewThreadMap[uint64](nil)
	g := allocations.NewGraph[uint64](f, order, nil, tm)
	return f, g
}

func TestVectorBodySkipsOverlappingEmbeddedTriple(t *testing.T) {
	f, _ := buildOverlappingVectorFixture(t)
	ctx, tags := newTestContext(t, f)

	referrerIndex, ok := f.IndexOfAddress(f.AllocationAt(0).Address)
	if !ok {
		t.Fatalf("expected referrer allocation to be found")
	}
	referrer := f.AllocationAt(referrerIndex)

	body1Index, ok := f.IndexOfAddress(f.AllocationAt(1).Address)
	if !ok {
		t.Fatalf("expected body1 allocation to be found")
	}
	body2Index, ok := f.IndexOfAddress(f.AllocationAt(2).Address)
	if !ok {
		t.Fatalf("expected body2 allocation to be found")
	}

	tagger := NewVectorBody[uint64](tags)

	tagger.TagFromReferenced(ctx, allocations.WeakCheck, body1Index, f.AllocationAt(body1Index), referrerIndex, referrer)
	if tags.GetTagIndex(body1Index) == allocations.NoTag {
		t.Fatalf("expected body1 to be tagged from its non-overlapping triple")
	}

	tagger.TagFromReferenced(ctx, allocations.WeakCheck, body2Index, f.AllocationAt(body2Index), referrerIndex, referrer)
	if tags.GetTagIndex(body2Index) != allocations.NoTag {
		t.Fatalf("expected body2 to stay untagged: its only candidate triple overlaps body1's already-consumed words")
	}
}

func TestVectorBodyTaggedFromStaticAnchor(t *testing.T) {
	f, g := buildVectorFixture(t)
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
	runner := allocations.NewTaggerRunner(ctx)
	runner.RegisterTagger(NewVectorBody[uint64](tags))
	runner.ResolveAllAllocationTags()

	bodyIndex, ok := f.IndexOfAddress(f.AllocationAt(1).Address)
	if !ok {
		t.Fatalf("expected body allocation to be found")
	}
	tagIndex := tags.GetTagIndex(bodyIndex)
	if tagIndex == allocations.NoTag || tags.TagName(tagIndex) != "vector body" {
		t.Fatalf("body allocation tag = %q, want \"vector body\"", tags.TagName(tagIndex))
	}
}
