// Copyright 2019 VMware, Inc.
// SPDX-License-Identifier: GPL-2.0

package describe

import (
	"fmt"
	"io"

	"github.com/GDLynx/chap/allocations"
	"github.com/GDLynx/chap/core"
	"github.com/dustin/go-humanize"
)

// Generic describes any pattern whose allocations don't need more
// than "this matched pattern X, and is this big" — the deque block,
// list node, map/set node, unordered map/set buckets, COWString body
// and PyObject patterns, none of which chap's own describers say much
// more about either.
type Generic[W core.Word] struct {
	name string
}

func NewGeneric[W core.Word](patternName string) *Generic[W] {
	return &Generic[W]{name: patternName}
}

func (d *Generic[W]) PatternName() string { return d.name }

func (d *Generic[W]) DescribePattern(w io.Writer, index int, alloc allocations.Allocation[W], explain bool) {
	fmt.Fprintf(w, "This allocation matches pattern %s.\n", d.name)
	fmt.Fprintf(w, "It is %s (%#x bytes).\n", humanize.Bytes(uint64(alloc.Size)), uint64(alloc.Size))
}
