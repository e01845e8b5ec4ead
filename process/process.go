// Copyright 2017-2019 VMware, Inc.
// SPDX-License-Identifier: GPL-2.0

// Package process wires the rest of the engine's packages into one
// object per snapshot: the address map and thread map a loader
// produced, the partition/module/signature/anchor directories built
// from them, and — once FindAllocations has run — the allocation
// finder, graph, and tag holder, whose tags TagAllocations then
// resolves. It is ProcessImage.
package process

import (
	"fmt"

	"github.com/GDLynx/chap/allocations"
	"github.com/GDLynx/chap/anchor"
	"github.com/GDLynx/chap/config"
	"github.com/GDLynx/chap/core"
	"github.com/GDLynx/chap/moduledir"
	"github.com/GDLynx/chap/partition"
	"github.com/GDLynx/chap/signature"
	"github.com/GDLynx/chap/taggers"
	"github.com/GDLynx/chap/threads"

	"github.com/apex/log"
)

// Image is ProcessImage: the fully wired view of one snapshot.
type Image[W core.Word] struct {
	AddressMap *core.AddressMap[W]
	ThreadMap  *threads.ThreadMap[W]
	Partition  *partition.Partition[W]
	Modules    *moduledir.Directory[W]
	Signatures *signature.Directory[W]
	Anchors    *anchor.Directory[W]
	ByteOrder  core.ByteOrder

	Finder *allocations.Finder[W]
	Graph  *allocations.Graph[W]
	Tags   *allocations.TagHolder
}

// New builds an Image and claims each thread's stack range in the
// partition, warning (not failing) on any overlap — the same
// tolerant-of-corruption posture the rest of the engine takes.
func New[W core.Word](addressMap *core.AddressMap[W], threadMap *threads.ThreadMap[W], modules *moduledir.Directory[W], byteOrder core.ByteOrder) *Image[W] {
	img := &Image[W]{
		AddressMap: addressMap,
		ThreadMap:  threadMap,
		Partition:  partition.New[W](),
		Modules:    modules,
		Signatures: signature.New[W](),
		Anchors:    anchor.New[W](),
		ByteOrder:  byteOrder,
	}

	for _, t := range threadMap.All() {
		min, max := t.Range()
		if !img.Partition.ClaimRange(min, max-min, partition.Stack, false) {
			log.Warnf("overlap found for stack range for thread %d", t.ThreadNum)
		}
	}

	return img
}

// FindAllocations runs the allocator walk over the given heap ranges.
// Must be called before TagAllocations.
func (img *Image[W]) FindAllocations(ranges []allocations.HeapRange[W]) {
	img.Finder = allocations.NewFinder[W](img.AddressMap, img.ByteOrder, ranges)
	for _, issue := range img.Finder.Issues() {
		log.Warnf("%s", issue.Error())
	}

	var staticRanges []allocations.AnchorRange[W]
	for _, m := range img.Modules.Modules() {
		for _, seg := range m.Segments {
			staticRanges = append(staticRanges, allocations.AnchorRange[W]{Min: seg.Min, Max: seg.Max})
		}
	}
	img.Graph = allocations.NewGraph[W](img.Finder, img.ByteOrder, staticRanges, img.ThreadMap)
	img.Tags = allocations.NewTagHolder(img.Finder.NumAllocations())
	img.populateAnchors()
}

// populateAnchors names every anchor address the graph discovered
// after the fact, by the module segment or thread it fell in — the
// graph itself only needs raw addresses to confirm a tagger's
// candidate header, but a describer citing "found at libssl.so.1.1's
// data segment" instead of a bare hex address needs the name.
func (img *Image[W]) populateAnchors() {
	n := img.Finder.NumAllocations()
	for i := 0; i < n; i++ {
		for _, addr := range img.Graph.GetStaticAnchors(i) {
			name := "static"
			if seg, ok := img.Modules.SegmentAt(addr); ok {
				name = seg.Name
			}
			img.Anchors.Register(name, anchor.Static, addr)
		}
		for _, addr := range img.Graph.GetStackAnchors(i) {
			name := "stack"
			if t, ok := threadOwning(img.ThreadMap, addr); ok {
				name = fmt.Sprintf("thread %d stack", t.ThreadNum)
			}
			img.Anchors.Register(name, anchor.Stack, addr)
		}
	}
	for _, t := range img.ThreadMap.All() {
		for _, r := range t.Registers {
			if _, ok := img.Finder.IndexOfAddress(r.Value); !ok {
				continue
			}
			name := fmt.Sprintf("thread %d register %s", t.ThreadNum, r.Name)
			img.Anchors.Register(name, anchor.Register, r.Value)
		}
	}
}

func threadOwning[W core.Word](tm *threads.ThreadMap[W], addr W) (*threads.Thread[W], bool) {
	for _, t := range tm.All() {
		min, max := t.Range()
		if addr >= min && addr < max {
			return t, true
		}
	}
	return nil, false
}

// TagAllocations registers every known pattern recognizer, in the
// fixed order chap itself uses — UnorderedMapOrSet, MapOrSet, Deque,
// List, LongString, Vector, COWString, OpenSSL, Python — and resolves
// tags for every allocation. Registration order is the tie-break
// within a phase, so this order is a real part of the contract, not
// an arbitrary choice: Deque must run before VectorBody's weak phase
// would otherwise claim a deque block as a vector body.
func (img *Image[W]) TagAllocations(policy *config.Policy) {
	if img.Finder == nil || img.Graph == nil {
		panic("TagAllocations called before FindAllocations")
	}

	ctx := &allocations.TagContext[W]{
		Finder:              img.Finder,
		Graph:               img.Graph,
		Tags:                img.Tags,
		Modules:             img.Modules,
		Signatures:          img.Signatures,
		Anchors:             img.Anchors,
		ByteOrder:           img.ByteOrder,
		MinLongStringLength: policy.LongStringMinLength,
		PreferFirstAnchor:   policy.VectorAmbiguityPreferFirst,
	}
	runner := allocations.NewTaggerRunner(ctx)
	runner.RegisterTagger(taggers.NewHashTableBuckets[W](img.Tags))
	runner.RegisterTagger(taggers.NewRBTreeNode[W](img.Tags))
	runner.RegisterTagger(taggers.NewDequeBlock[W](img.Tags))
	runner.RegisterTagger(taggers.NewListNode[W](img.Tags))
	runner.RegisterTagger(taggers.NewLongString[W](img.Tags))
	runner.RegisterTagger(taggers.NewVectorBody[W](img.Tags))
	runner.RegisterTagger(taggers.NewCOWString[W](img.Tags))
	runner.RegisterTagger(taggers.NewSSLCtx[W](img.Tags))
	runner.RegisterTagger(taggers.NewPyObject[W](img.Tags))
	runner.ResolveAllAllocationTags()
}

// Overview renders a one-line-per-category summary of what
// FindAllocations and TagAllocations discovered.
func (img *Image[W]) Overview() string {
	if img.Finder == nil {
		return "no allocations have been found yet"
	}
	used, free := 0, 0
	for i := 0; i < img.Finder.NumAllocations(); i++ {
		if img.Finder.AllocationAt(i).Used {
			used++
		} else {
			free++
		}
	}
	return fmt.Sprintf("%d allocations found (%d used, %d free); %d threads", img.Finder.NumAllocations(), used, free, img.ThreadMap.NumThreads())
}
