// Copyright 2019 VMware, Inc.
// SPDX-License-Identifier: GPL-2.0

// Package describe renders what the engine has learned about an
// allocation into text. A PatternDescriber handles exactly the
// allocations already tagged with one particular pattern; a plain
// Describer (for addresses that aren't allocations at all — a
// register value, a static symbol) is the more general contract.
package describe

import (
	"fmt"
	"io"

	"github.com/GDLynx/chap/allocations"
	"github.com/GDLynx/chap/core"
)

// Describer explains one address. Describe writes to w and reports
// whether it had anything useful to say; showAddresses controls
// whether the description repeats the address (useful at the top
// level, redundant when nested inside another describer's output).
type Describer[W core.Word] interface {
	Describe(w io.Writer, addr W, explain, showAddresses bool) bool
}

// PatternDescriber is the contract a tagger's matching Describer
// fulfills: describe an allocation already known to match the
// pattern this describer is named for.
type PatternDescriber[W core.Word] interface {
	PatternName() string
	DescribePattern(w io.Writer, index int, alloc allocations.Allocation[W], explain bool)
}

// Registry dispatches an address to the PatternDescriber registered
// for its tag, falling back to reporting the address is just an
// allocation with no recognized pattern.
type Registry[W core.Word] struct {
	finder     *allocations.Finder[W]
	tags       *allocations.TagHolder
	byTagIndex map[int]PatternDescriber[W]
}

func NewRegistry[W core.Word](finder *allocations.Finder[W], tags *allocations.TagHolder) *Registry[W] {
	return &Registry[W]{finder: finder, tags: tags, byTagIndex: make(map[int]PatternDescriber[W])}
}

// Register associates a tag name with the describer that knows how to
// explain allocations carrying that tag. The tag must already have
// been registered with the TagHolder (taggers do this themselves).
func (r *Registry[W]) Register(tagName string, d PatternDescriber[W]) {
	r.byTagIndex[r.tags.RegisterTag(tagName)] = d
}

// Describe implements Describer by resolving addr to an allocation,
// dispatching to the pattern describer for its tag if one is
// registered, and otherwise reporting its bare size and liveness.
func (r *Registry[W]) Describe(w io.Writer, addr W, explain, showAddresses bool) bool {
	index, ok := r.finder.IndexOfAddress(addr)
	if !ok {
		return false
	}
	alloc := r.finder.AllocationAt(index)
	if showAddresses {
		fmt.Fprintf(w, "Allocation at %#x of size %#x:\n", uint64(addr), uint64(alloc.Size))
	}

	tagIndex := r.tags.GetTagIndex(index)
	if tagIndex == allocations.NoTag {
		status := "unused"
		if alloc.Used {
			status = "used"
		}
		fmt.Fprintf(w, "This %s allocation does not match any recognized pattern.\n", status)
		return true
	}
	d, ok := r.byTagIndex[tagIndex]
	if !ok {
		fmt.Fprintf(w, "This allocation matches pattern %s.\n", r.tags.TagName(tagIndex))
		return true
	}
	d.DescribePattern(w, index, alloc, explain)
	return true
}
