// Copyright 2019 VMware, Inc.
// SPDX-License-Identifier: GPL-2.0

package describe

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/GDLynx/chap/allocations"
	"github.com/GDLynx/chap/core"
)

func buildLongStringAllocation(t *testing.T) (*allocations.Finder[uint64], *core.AddressMap[uint64]) {
	t.Helper()
	order := binary.LittleEndian
	const base = 0x70000
	payload := append([]byte(strings.Repeat("x", 40)), 0)
	chunkSize := uint64(len(payload)) + 16
	if rem := chunkSize % 16; rem != 0 {
		chunkSize += 16 - rem
	}
	buf := make([]byte, chunkSize+8)
	order.PutUint64(buf[8:16], chunkSize|0x1) // prevInUse
	copy(buf[16:], payload)
	seg := core.NewSegment[uint64](base, base+uint64(len(buf)), core.Read|core.Write, "", buf)
	m := core.NewAddressMap([]*core.Segment[uint64]{seg})
	f := allocations.NewFinder[uint64](m, order, []allocations.HeapRange[uint64]{{Min: base, Max: base + uint64(len(buf))}})
	return f, m
}

func TestRegistryDescribesTaggedAllocation(t *testing.T) {
	f, m := buildLongStringAllocation(t)
	tags := allocations.NewTagHolder(f.NumAllocations())
	tagIndex := tags.RegisterTag("LongString")
	tags.TagAllocation(0, tagIndex)

	registry := NewRegistry[uint64](f, tags)
	registry.Register("LongString", NewLongString[uint64](m))

	var buf bytes.Buffer
	addr := f.AllocationAt(0).Address
	if !registry.Describe(&buf, addr, false, true) {
		t.Fatalf("expected Describe to succeed for a known allocation")
	}
	out := buf.String()
	if !strings.Contains(out, "matches pattern LongString") {
		t.Errorf("output = %q, want it to mention LongString", out)
	}
	if !strings.Contains(out, "0x28 bytes") {
		t.Errorf("output = %q, want the exact hex byte count 0x28", out)
	}
}

func TestRegistryReportsUnrecognizedAllocation(t *testing.T) {
	f, m := buildLongStringAllocation(t)
	tags := allocations.NewTagHolder(f.NumAllocations())
	registry := NewRegistry[uint64](f, tags)
	registry.Register("LongString", NewLongString[uint64](m))

	var buf bytes.Buffer
	addr := f.AllocationAt(0).Address
	if !registry.Describe(&buf, addr, false, true) {
		t.Fatalf("expected Describe to succeed even for an untagged allocation")
	}
	if !strings.Contains(buf.String(), "does not match any recognized pattern") {
		t.Errorf("output = %q, want the no-pattern fallback message", buf.String())
	}
}

func TestRegistryMissesNonAllocationAddress(t *testing.T) {
	f, m := buildLongStringAllocation(t)
	tags := allocations.NewTagHolder(f.NumAllocations())
	registry := NewRegistry[uint64](f, tags)
	registry.Register("LongString", NewLongString[uint64](m))

	var buf bytes.Buffer
	if registry.Describe(&buf, 0xdeadbeef, false, true) {
		t.Fatalf("Describe should report false for an address that isn't an allocation")
	}
}
