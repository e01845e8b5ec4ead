// Copyright 2019 VMware, Inc.
// SPDX-License-Identifier: GPL-2.0

package describe

import (
	"fmt"
	"io"

	"github.com/GDLynx/chap/allocations"
	"github.com/GDLynx/chap/anchor"
	"github.com/GDLynx/chap/core"
)

// VectorBody describes allocations tagged "vector body". Tagging time
// only records the allocation as a match, not which anchor or
// embedding header proved it, so describing one means re-running the
// same start/useLimit/capacityLimit search checkAnchorsIn and
// checkEmbeddedVector (taggers package) used: static anchors, then
// stack anchors, then every referrer's bytes. This costs a rescan but
// keeps TagHolder's per-allocation state down to a single tag index.
type VectorBody[W core.Word] struct {
	finder    *allocations.Finder[W]
	graph     *allocations.Graph[W]
	anchors   *anchor.Directory[W]
	byteOrder core.ByteOrder
}

func NewVectorBody[W core.Word](finder *allocations.Finder[W], graph *allocations.Graph[W], anchors *anchor.Directory[W], byteOrder core.ByteOrder) *VectorBody[W] {
	return &VectorBody[W]{finder: finder, graph: graph, anchors: anchors, byteOrder: byteOrder}
}

func (d *VectorBody[W]) PatternName() string { return "vector body" }

func (d *VectorBody[W]) DescribePattern(w io.Writer, index int, alloc allocations.Allocation[W], explain bool) {
	fmt.Fprintf(w, "This allocation matches pattern vector body.\n")

	triple, origin, ok := d.findTriple(index, alloc)
	if !ok {
		fmt.Fprintf(w, "It is %#x bytes; the anchoring header could not be relocated.\n", uint64(alloc.Size))
		return
	}

	wordSize := core.WordSize[W]()
	length := uint64(triple.useLimit-triple.start) / uint64(wordSize)
	capacity := uint64(triple.capacityLimit-triple.start) / uint64(wordSize)
	fmt.Fprintf(w, "It has length %d and capacity %d, measured in %d-byte words.\n", length, capacity, wordSize)
	if explain {
		switch origin.kind {
		case originStaticAnchor:
			fmt.Fprintf(w, "The header was found at static anchor %s.\n", d.nameOrAddress(origin.address))
		case originStackAnchor:
			fmt.Fprintf(w, "The header was found at stack anchor %s.\n", d.nameOrAddress(origin.address))
		case originEmbedded:
			fmt.Fprintf(w, "The header is embedded in the allocation at %#x.\n", uint64(origin.address))
		}
	}
}

// nameOrAddress cites the anchor directory's name for addr ("thread 2
// stack", "libssl.so.1.1:.data") when one was registered, falling
// back to the bare address otherwise.
func (d *VectorBody[W]) nameOrAddress(addr W) string {
	if name, ok := d.anchors.Resolve(addr); ok {
		return fmt.Sprintf("%s (%#x)", name, uint64(addr))
	}
	return fmt.Sprintf("%#x", uint64(addr))
}

type vectorTriple[W core.Word] struct {
	start, useLimit, capacityLimit W
}

type originKind int

const (
	originStaticAnchor originKind = iota
	originStackAnchor
	originEmbedded
)

type vectorOrigin[W core.Word] struct {
	kind    originKind
	address W
}

// findTriple re-derives the start/useLimit/capacityLimit triple that
// got this allocation tagged, trying the same sources
// taggers.VectorBody.TagFromAllocation/TagFromReferenced did: static
// anchors, then stack anchors, then every allocation that references
// this one. Anchors are always tried in ascending address order; when
// the tagger ran with PreferFirstAnchor false, the triple found here
// can come from a different anchor than the one that tagged it.
func (d *VectorBody[W]) findTriple(index int, alloc allocations.Allocation[W]) (vectorTriple[W], vectorOrigin[W], bool) {
	reader := core.NewReader(d.finder.AddressMap())
	wordSize := core.WordSize[W]()
	bodyAddress := alloc.Address
	bodyLimit := bodyAddress + alloc.Size

	tryAddress := func(addr W) (vectorTriple[W], bool) {
		img, n := reader.FindMappedMemoryImage(addr)
		if n < 3*wordSize {
			return vectorTriple[W]{}, false
		}
		start := core.DecodeWord[W](img, d.byteOrder)
		if start != bodyAddress {
			return vectorTriple[W]{}, false
		}
		useLimit := core.DecodeWord[W](img[wordSize:], d.byteOrder)
		if useLimit < bodyAddress {
			return vectorTriple[W]{}, false
		}
		capacityLimit := core.DecodeWord[W](img[2*wordSize:], d.byteOrder)
		if capacityLimit < useLimit || capacityLimit > bodyLimit || capacityLimit == bodyAddress {
			return vectorTriple[W]{}, false
		}
		return vectorTriple[W]{start: start, useLimit: useLimit, capacityLimit: capacityLimit}, true
	}

	for _, addr := range d.graph.GetStaticAnchors(index) {
		if t, ok := tryAddress(addr); ok {
			return t, vectorOrigin[W]{kind: originStaticAnchor, address: addr}, true
		}
	}
	for _, addr := range d.graph.GetStackAnchors(index) {
		if t, ok := tryAddress(addr); ok {
			return t, vectorOrigin[W]{kind: originStackAnchor, address: addr}, true
		}
	}
	for _, refIndex := range d.graph.IncomingEdges(index) {
		referrer := d.finder.AllocationAt(refIndex)
		image := allocations.NewContiguousImage[W](d.finder.AddressMap(), referrer)
		limit := image.OffsetLimit()
		if limit < 3*wordSize {
			continue
		}
		limit -= 2 * wordSize
		for off := image.FirstOffset(); off < limit; off += wordSize {
			start, ok := image.ReadWord(off, d.byteOrder)
			if !ok || start != bodyAddress {
				continue
			}
			useLimit, ok := image.ReadWord(off+wordSize, d.byteOrder)
			if !ok || useLimit < bodyAddress {
				continue
			}
			capacityLimit, ok := image.ReadWord(off+2*wordSize, d.byteOrder)
			if !ok || capacityLimit < useLimit || capacityLimit > bodyLimit || capacityLimit == bodyAddress {
				continue
			}
			return vectorTriple[W]{start: start, useLimit: useLimit, capacityLimit: capacityLimit},
				vectorOrigin[W]{kind: originEmbedded, address: referrer.Address + off}, true
		}
	}
	return vectorTriple[W]{}, vectorOrigin[W]{}, false
}
