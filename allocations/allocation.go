// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package allocations is the heart of the engine: discovering heap
// allocations from a snapshot (Finder), linking them into a pointer
// graph rooted at anchors (Graph), and running the cooperative
// pattern-recognizer framework that classifies each one (TagHolder,
// Tagger, TaggerRunner).
package allocations

import "github.com/GDLynx/chap/core"

// Allocation is one heap allocation as recovered from the allocator's
// metadata: its address, its usable payload size, and whether the
// allocator still considers it live.
type Allocation[W core.Word] struct {
	Address W
	Size    W
	Used    bool
}

// NoAllocation is the sentinel allocation index meaning "not an
// allocation" — e.g. IndexOfAddress's second return value is false.
const NoAllocation = -1
