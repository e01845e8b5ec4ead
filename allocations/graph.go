// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package allocations

import (
	"runtime"
	"sort"
	"sync"

	"github.com/GDLynx/chap/core"
	"github.com/GDLynx/chap/threads"
)

// AnchorRange is one memory range (a module's writable data segment,
// typically) to scan for pointers into the allocation graph when
// building the static anchor set.
type AnchorRange[W core.Word] struct {
	Min, Max W
}

// Graph is AllocationGraph: the directed pointer graph over recovered
// allocations, plus the anchor sets that seed reachability.
//
// Static and stack anchors are kept per allocation as the raw memory
// addresses where a pointer to that allocation was found — not just
// the allocation index — because a tagger like VectorBody needs to
// read the words that follow the anchor (a vector's use-limit and
// capacity-limit fields sit right after its start pointer) to decide
// whether the anchor is actually the header for that allocation.
// Register anchors have no such "what follows" structure, since a
// register is a value rather than an address, so they're kept as a
// flat set of allocation indices.
//
// The whole graph is built once, from a Finder that has already
// completed its walk, and is read-only thereafter.
type Graph[W core.Word] struct {
	finder     *Finder[W]
	addressMap *core.AddressMap[W]
	byteOrder  core.ByteOrder

	outgoing [][]int
	incoming [][]int

	staticAnchors   [][]W
	stackAnchors    [][]W
	registerAnchors []int
}

// NewGraph scans every allocation's payload for words that happen to
// be the address of another allocation (an edge), and scans the given
// static ranges and thread stacks/registers for the same thing to
// seed the anchor sets. Edge scanning is split across GOMAXPROCS
// workers by contiguous, statically assigned allocation-index ranges,
// so the result is independent of goroutine scheduling; tag
// resolution downstream stays strictly sequential.
func NewGraph[W core.Word](finder *Finder[W], byteOrder core.ByteOrder, staticRanges []AnchorRange[W], threadMap *threads.ThreadMap[W]) *Graph[W] {
	g := &Graph[W]{
		finder:     finder,
		addressMap: finder.AddressMap(),
		byteOrder:  byteOrder,
	}
	g.buildOutgoingEdges()
	g.buildIncomingEdges()

	n := finder.NumAllocations()
	g.staticAnchors = g.scanForAnchors(n, staticRanges)

	var stackRanges []AnchorRange[W]
	for _, t := range threadMap.All() {
		min, max := t.Range()
		stackRanges = append(stackRanges, AnchorRange[W]{Min: min, Max: max})
	}
	g.stackAnchors = g.scanForAnchors(n, stackRanges)
	g.registerAnchors = g.scanRegisterAnchors(threadMap)
	return g
}

func (g *Graph[W]) buildOutgoingEdges() {
	n := g.finder.NumAllocations()
	g.outgoing = make([][]int, n)
	if n == 0 {
		return
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	wordSize := core.WordSize[W]()
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			reader := core.NewReader(g.addressMap)
			for i := start; i < end; i++ {
				alloc := g.finder.AllocationAt(i)
				var edges []int
				for off := W(0); off+wordSize <= alloc.Size; off += wordSize {
					word, ok := reader.ReadWord(alloc.Address+off, g.byteOrder)
					if !ok {
						continue
					}
					if j, found := g.finder.IndexOfAddress(word); found {
						edges = append(edges, j)
					}
				}
				g.outgoing[i] = edges
			}
		}(start, end)
	}
	wg.Wait()
}

// buildIncomingEdges constructs the reverse adjacency by counting
// in-degree per node, then compacting into one flat slice sliced per
// node — the same count-then-compact shape as any reverse-edge build
// over a static forward adjacency.
func (g *Graph[W]) buildIncomingEdges() {
	n := len(g.outgoing)
	g.incoming = make([][]int, n)
	if n == 0 {
		return
	}

	counts := make([]int, n)
	for _, edges := range g.outgoing {
		for _, j := range edges {
			counts[j]++
		}
	}
	starts := make([]int, n+1)
	for i := 0; i < n; i++ {
		starts[i+1] = starts[i] + counts[i]
	}
	flat := make([]int, starts[n])
	cursor := append([]int{}, starts[:n]...)
	for i, edges := range g.outgoing {
		for _, j := range edges {
			flat[cursor[j]] = i
			cursor[j]++
		}
	}
	for i := 0; i < n; i++ {
		g.incoming[i] = flat[starts[i]:starts[i+1]]
	}
}

// scanForAnchors scans word-at-a-time across the given ranges and
// records, per allocation, the addresses where a pointer to it was
// found. The ranges are walked in ascending order of their start
// address, each low-to-high, so for disjoint ranges addresses are
// appended in ascending anchor-address order — this engine's
// resolution of anchor iteration order: deterministic and independent
// of map-iteration order or thread-discovery order.
func (g *Graph[W]) scanForAnchors(numAllocations int, ranges []AnchorRange[W]) [][]W {
	anchors := make([][]W, numAllocations)
	reader := core.NewReader(g.addressMap)
	wordSize := core.WordSize[W]()
	sorted := append([]AnchorRange[W](nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })
	for _, r := range sorted {
		for addr := r.Min; addr+wordSize <= r.Max; addr += wordSize {
			word, ok := reader.ReadWord(addr, g.byteOrder)
			if !ok {
				continue
			}
			if j, found := g.finder.IndexOfAddress(word); found {
				anchors[j] = append(anchors[j], addr)
			}
		}
	}
	return anchors
}

func (g *Graph[W]) scanRegisterAnchors(tm *threads.ThreadMap[W]) []int {
	seen := make(map[int]bool)
	var result []int
	for _, t := range tm.All() {
		for _, r := range t.Registers {
			if j, found := g.finder.IndexOfAddress(r.Value); found && !seen[j] {
				seen[j] = true
				result = append(result, j)
			}
		}
	}
	sort.Ints(result)
	return result
}

// OutgoingEdges returns the allocation indices that allocation i's
// payload points at.
func (g *Graph[W]) OutgoingEdges(i int) []int { return g.outgoing[i] }

// IncomingEdges returns the allocation indices whose payload points
// at allocation i.
func (g *Graph[W]) IncomingEdges(i int) []int { return g.incoming[i] }

// GetStaticAnchors returns the addresses in static storage that hold
// a pointer directly to allocation i, in ascending address order.
func (g *Graph[W]) GetStaticAnchors(i int) []W { return g.staticAnchors[i] }

// GetStackAnchors returns the addresses on some thread's stack that
// hold a pointer directly to allocation i, in ascending address
// order.
func (g *Graph[W]) GetStackAnchors(i int) []W { return g.stackAnchors[i] }

// IsStaticallyAnchored reports whether any static anchor points
// directly at allocation i.
func (g *Graph[W]) IsStaticallyAnchored(i int) bool { return len(g.staticAnchors[i]) > 0 }

// IsStackAnchored reports whether any stack anchor points directly at
// allocation i.
func (g *Graph[W]) IsStackAnchored(i int) bool { return len(g.stackAnchors[i]) > 0 }

// GetRegisterAnchors returns the allocation indices held directly in
// some thread's registers, in allocation-address order.
func (g *Graph[W]) GetRegisterAnchors() []int { return g.registerAnchors }

// IsRegisterAnchored reports whether allocation i is directly held in
// some thread's register.
func (g *Graph[W]) IsRegisterAnchored(i int) bool {
	for _, j := range g.registerAnchors {
		if j == i {
			return true
		}
	}
	return false
}
