// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package partition implements VirtualMemoryPartition: a disjoint
// labeling of claimed address ranges (stacks, guard pages, module
// segments, the heap) layered on top of core.AddressMap. It exists
// to let independent builders (thread-stack registration, module
// loading, the allocation finder) stake out their piece of the
// address space and notice when two claims collide.
package partition

import (
	"sort"

	"github.com/GDLynx/chap/core"
)

// Reserved labels used throughout the engine; callers may use any
// other string for module or custom claims.
const (
	Stack               = "stack"
	StackOverflowGuard  = "stack overflow guard"
	UsedAllocation      = "used allocation"
)

// A Claim is one labeled, half-open interval [Start, Start+Size)
// registered with a Partition.
type Claim[W core.Word] struct {
	Start        W
	Size         W
	Label        string
	AllowOverlap bool
}

func (c *Claim[W]) End() W { return c.Start + c.Size }

// Partition is VirtualMemoryPartition: an ownership-labeled interval
// structure over the address space.
type Partition[W core.Word] struct {
	claims []*Claim[W] // sorted by Start
}

func New[W core.Word]() *Partition[W] {
	return &Partition[W]{}
}

// ClaimRange attempts to register [start, start+size) under label. If
// allowOverlap is false and the range intersects any existing claim,
// the partition is left unchanged and false is returned — per spec
// §7 (RangeOverlap), the caller is expected to log a warning and
// continue, not treat this as fatal.
func (p *Partition[W]) ClaimRange(start, size W, label string, allowOverlap bool) bool {
	end := start + size
	if !allowOverlap && p.overlaps(start, end) {
		return false
	}
	claim := &Claim[W]{Start: start, Size: size, Label: label, AllowOverlap: allowOverlap}
	i := sort.Search(len(p.claims), func(i int) bool { return p.claims[i].Start >= start })
	p.claims = append(p.claims, nil)
	copy(p.claims[i+1:], p.claims[i:])
	p.claims[i] = claim
	return true
}

// overlaps reports whether [start,end) intersects any existing claim.
// Claims are kept sorted by Start; in the common case (most claims
// disjoint) this is O(log n). Claims registered with allowOverlap can
// make a pathological case O(n), which is acceptable since those are
// rare (module segments re-observed across libraries, mainly).
func (p *Partition[W]) overlaps(start, end W) bool {
	i := sort.Search(len(p.claims), func(i int) bool { return p.claims[i].Start >= start })
	for j := i - 1; j >= 0; j-- {
		c := p.claims[j]
		if c.Start < end && start < c.End() {
			return true
		}
		if j < i-1 && c.End() <= start {
			break
		}
	}
	for j := i; j < len(p.claims); j++ {
		c := p.claims[j]
		if c.Start >= end {
			break
		}
		if c.Start < end && start < c.End() {
			return true
		}
	}
	return false
}

// Claims returns all registered claims in address order.
func (p *Partition[W]) Claims() []*Claim[W] { return p.claims }

// ClaimAt returns the claim covering addr, if any.
func (p *Partition[W]) ClaimAt(addr W) (*Claim[W], bool) {
	i := sort.Search(len(p.claims), func(i int) bool { return p.claims[i].End() > addr })
	if i < len(p.claims) && p.claims[i].Start <= addr {
		return p.claims[i], true
	}
	return nil, false
}
