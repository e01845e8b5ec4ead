// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package allocations

import (
	"fmt"
	"sort"

	"github.com/GDLynx/chap/core"
)

// glibc malloc_chunk size-field flag bits. The size field stores the
// chunk size OR'd with these in its low three bits.
const (
	prevInUse    = 0x1
	isMmapped    = 0x2
	nonMainArena = 0x4
	sizeFlags    = prevInUse | isMmapped | nonMainArena
)

// HeapRange is one contiguous arena the loader believes holds
// glibc-managed chunks (the main arena's heap segment, or one
// mmap'd/sbrk'd extension of it).
type HeapRange[W core.Word] struct {
	Min, Max W
}

// Finder is AllocationFinder: a one-shot, monotone pass over the
// declared heap ranges that recovers the allocator's chunk boundaries.
// Once built it never changes; NumAllocations, AllocationAt and
// IndexOfAddress are safe to call concurrently from multiple taggers.
type Finder[W core.Word] struct {
	addressMap  *core.AddressMap[W]
	allocations []Allocation[W]
	issues      []*core.Issue
}

// NewFinder walks each heap range as a sequence of glibc malloc
// chunks. A chunk whose recorded size is implausible (zero, smaller
// than the four-word minimum chunk, or running past the end of the
// range) means
// the arena's bookkeeping is corrupt from that point on — per the
// MalformedAllocatorState policy, the walk abandons that range and
// moves on to the next one rather than aborting the whole pass.
func NewFinder[W core.Word](addressMap *core.AddressMap[W], byteOrder core.ByteOrder, ranges []HeapRange[W]) *Finder[W] {
	f := &Finder[W]{addressMap: addressMap}
	wordSize := core.WordSize[W]()
	minChunk := 4 * wordSize // header (prev_size, size) + minimum payload

	for _, hr := range ranges {
		offset := hr.Min
		for offset+2*wordSize <= hr.Max {
			sizeField, ok := addressMap.ReadWord(offset+wordSize, byteOrder)
			if !ok {
				f.issues = append(f.issues, &core.Issue{
					Kind:    core.MalformedAllocatorState,
					Message: fmt.Sprintf("unmapped chunk header at %#x", uint64(offset)),
				})
				break
			}
			chunkSize := sizeField &^ W(sizeFlags)
			if chunkSize < minChunk || offset+chunkSize > hr.Max || offset+chunkSize <= offset {
				f.issues = append(f.issues, &core.Issue{
					Kind:    core.MalformedAllocatorState,
					Message: fmt.Sprintf("implausible chunk size %#x at %#x, abandoning range [%#x,%#x)", uint64(chunkSize), uint64(offset), uint64(hr.Min), uint64(hr.Max)),
				})
				break
			}

			next := offset + chunkSize
			used := true
			if next+wordSize <= hr.Max {
				if nextSize, ok := addressMap.ReadWord(next+wordSize, byteOrder); ok {
					used = nextSize&prevInUse != 0
				}
			}

			f.allocations = append(f.allocations, Allocation[W]{
				Address: offset + 2*wordSize,
				Size:    chunkSize - wordSize,
				Used:    used,
			})
			offset = next
		}
	}

	sort.Slice(f.allocations, func(i, j int) bool { return f.allocations[i].Address < f.allocations[j].Address })
	return f
}

// AddressMap returns the address map the finder was built against.
func (f *Finder[W]) AddressMap() *core.AddressMap[W] { return f.addressMap }

// Issues reports the malformed-allocator-state problems noticed
// during the walk, if any.
func (f *Finder[W]) Issues() []*core.Issue { return f.issues }

// NumAllocations returns the number of allocations found.
func (f *Finder[W]) NumAllocations() int { return len(f.allocations) }

// AllocationAt returns the allocation at the given index, in address
// order.
func (f *Finder[W]) AllocationAt(index int) Allocation[W] { return f.allocations[index] }

// IndexOfAddress returns the index of the allocation containing addr
// — addr may name the allocation's start or any byte inside its
// payload — and true, or (NoAllocation, false) if addr falls outside
// every recovered allocation.
func (f *Finder[W]) IndexOfAddress(addr W) (int, bool) {
	allocs := f.allocations
	lo, hi := 0, len(allocs)
	for lo < hi {
		mid := (lo + hi) / 2
		if allocs[mid].Address <= addr {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return NoAllocation, false
	}
	candidate := allocs[lo-1]
	if addr < candidate.Address+candidate.Size {
		return lo - 1, true
	}
	return NoAllocation, false
}
