// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package partition

import "testing"

func TestClaimRangeRejectsOverlap(t *testing.T) {
	p := New[uint64]()
	if !p.ClaimRange(0x1000, 0x100, Stack, false) {
		t.Fatalf("first claim should succeed")
	}
	if p.ClaimRange(0x1080, 0x100, UsedAllocation, false) {
		t.Fatalf("overlapping claim should be rejected")
	}
	if len(p.Claims()) != 1 {
		t.Fatalf("rejected claim must leave state unchanged, got %d claims", len(p.Claims()))
	}
}

func TestClaimRangeAcceptsDisjoint(t *testing.T) {
	p := New[uint64]()
	if !p.ClaimRange(0x1000, 0x100, Stack, false) {
		t.Fatalf("first claim should succeed")
	}
	if !p.ClaimRange(0x2000, 0x100, UsedAllocation, false) {
		t.Fatalf("disjoint claim should succeed")
	}
	if len(p.Claims()) != 2 {
		t.Fatalf("got %d claims, want 2", len(p.Claims()))
	}
}

func TestClaimRangeAllowOverlap(t *testing.T) {
	p := New[uint64]()
	if !p.ClaimRange(0x1000, 0x200, "module text", true) {
		t.Fatalf("first claim should succeed")
	}
	if !p.ClaimRange(0x1080, 0x40, "module text (alias)", true) {
		t.Fatalf("allowOverlap claim should succeed even though it overlaps")
	}
}

func TestClaimAt(t *testing.T) {
	p := New[uint64]()
	p.ClaimRange(0x1000, 0x100, Stack, false)
	p.ClaimRange(0x2000, 0x100, UsedAllocation, false)

	c, ok := p.ClaimAt(0x1050)
	if !ok || c.Label != Stack {
		t.Fatalf("ClaimAt(0x1050) = %v, %v; want Stack claim", c, ok)
	}
	if _, ok := p.ClaimAt(0x1800); ok {
		t.Fatalf("ClaimAt in gap should report no claim")
	}
}
