// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package core

// IssueKind classifies a non-fatal problem the engine noticed while
// degrading gracefully instead of aborting. NotMapped and RangeOverlap
// are reported as plain bool/zero-value results at their call sites
// (FindMappedMemoryImage, Partition.ClaimRange) rather than as Issues,
// since they happen routinely and callers handle them inline; Issue is
// for the rarer cases worth collecting and logging: a corrupted
// allocator arena, or (never actually raised, since TagHolder is
// first-writer-wins by construction) a tag conflict.
type IssueKind int

const (
	MalformedAllocatorState IssueKind = iota
	TagConflict
)

func (k IssueKind) String() string {
	switch k {
	case MalformedAllocatorState:
		return "malformed allocator state"
	case TagConflict:
		return "tag conflict"
	default:
		return "unknown issue"
	}
}

// Issue is one recoverable problem encountered during analysis.
type Issue struct {
	Kind    IssueKind
	Message string
}

func (i *Issue) Error() string { return i.Kind.String() + ": " + i.Message }
