// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package allocations

import (
	"github.com/GDLynx/chap/anchor"
	"github.com/GDLynx/chap/core"
	"github.com/GDLynx/chap/moduledir"
	"github.com/GDLynx/chap/signature"
)

// Phase is one pass of the cooperative tagging schedule. Every
// registered tagger that participates in a phase gets a look at every
// still-untagged allocation before the runner advances to the next
// phase, so a cheap, confident recognizer (QuickInitialCheck) always
// gets first refusal over an expensive, speculative one (WeakCheck).
type Phase int

const (
	QuickInitialCheck Phase = iota
	MediumCheck
	SlowCheck
	WeakCheck
)

func (p Phase) String() string {
	switch p {
	case QuickInitialCheck:
		return "quick initial check"
	case MediumCheck:
		return "medium check"
	case SlowCheck:
		return "slow check"
	case WeakCheck:
		return "weak check"
	default:
		return "unknown phase"
	}
}

// AllPhases is the fixed schedule order the runner walks.
var AllPhases = []Phase{QuickInitialCheck, MediumCheck, SlowCheck, WeakCheck}

// TagContext bundles the read-only directories and indexes a tagger
// needs, so registering a tagger doesn't require threading half a
// dozen parameters through every call.
type TagContext[W core.Word] struct {
	Finder     *Finder[W]
	Graph      *Graph[W]
	Tags       *TagHolder
	Modules    *moduledir.Directory[W]
	Signatures *signature.Directory[W]
	Anchors    *anchor.Directory[W]
	ByteOrder  core.ByteOrder

	// MinLongStringLength is the shortest NUL-terminated printable run
	// the LongString tagger will recognize. Zero means "use the
	// tagger's own default."
	MinLongStringLength int

	// PreferFirstAnchor resolves ambiguity when more than one anchor
	// address plausibly identifies the same body allocation (see
	// VectorBody in the taggers package): true prefers the anchor
	// found earliest in ascending anchor-address order, false prefers
	// the one found latest. Either choice is deterministic; this only
	// matters when a tagger has genuinely nothing else to break the
	// tie with.
	PreferFirstAnchor bool
}

// Tagger is the contract every pattern recognizer implements. A
// tagger only ever writes its OWN tag via ctx.Tags.TagAllocation; the
// runner's first-writer-wins enforcement is what keeps two taggers
// from fighting over the same allocation.
//
// TagFromAllocation looks at the allocation's own bytes. It runs for
// each untagged allocation on every sweep of a phase the tagger
// participates in.
//
// TagFromReferenced looks at an allocation in light of one specific
// allocation that references it (referrerIndex, already tagged or
// not) — the hook vector/deque/list recognizers use to tag a body
// allocation from its owning header.
//
// Both return whether they tagged the allocation, except that a
// size pre-check may also return true to reject a candidate outright
// (VectorBody's QuickInitialCheck does). When TagFromAllocation
// returns true the runner skips TagFromReferenced for that allocation
// in that sweep; the result of TagFromReferenced is not consulted.
type Tagger[W core.Word] interface {
	Name() string
	Phases() []Phase
	TagFromAllocation(ctx *TagContext[W], phase Phase, index int, alloc Allocation[W]) bool
	TagFromReferenced(ctx *TagContext[W], phase Phase, index int, alloc Allocation[W], referrerIndex int, referrer Allocation[W]) bool
}

// TaggerRunner is TaggerRunner: it owns the registration order of
// taggers and drives ResolveAllAllocationTags through the fixed phase
// schedule.
type TaggerRunner[W core.Word] struct {
	ctx     *TagContext[W]
	taggers []Tagger[W]
}

func NewTaggerRunner[W core.Word](ctx *TagContext[W]) *TaggerRunner[W] {
	return &TaggerRunner[W]{ctx: ctx}
}

// RegisterTagger appends t to the registration order. Registration
// order is the tie-break within a phase: the first tagger registered
// that's willing to tag a given allocation in a given phase wins.
func (r *TaggerRunner[W]) RegisterTagger(t Tagger[W]) {
	r.taggers = append(r.taggers, t)
}

// ResolveAllAllocationTags runs every registered tagger, phase by
// phase, in registration order, until every phase has had its turn.
// Tag resolution is strictly sequential — the graph was built in
// parallel, but assigning tags from it never is, since first-writer-
// wins semantics depend on a single, deterministic visitation order.
//
// Within a phase, a tagger's ascending-index pass over the
// allocations repeats until it makes a pass with no new tags — judged
// by the total tagged count before and after, not by a tagger's
// return value, since a few recognizers (DequeBlock tagging its map
// as a side effect of tagging a block, VectorBody's embedded-vector
// search) assign a tag without reporting true. A recognizer like
// ListNode or RBTreeNode only propagates its tag from an
// already-tagged neighbor, so a single pass would only ever see
// propagation run in the direction of increasing address; looping to
// a fixpoint lets it settle regardless of which end of a structure
// happens to anchor first.
func (r *TaggerRunner[W]) ResolveAllAllocationTags() {
	finder := r.ctx.Finder
	graph := r.ctx.Graph
	tags := r.ctx.Tags
	n := finder.NumAllocations()

	for _, phase := range AllPhases {
		for _, tagger := range r.taggers {
			if !participatesIn(tagger, phase) {
				continue
			}
			for {
				before := countTagged(tags, n)
				for i := 0; i < n; i++ {
					if tags.IsTagged(i) {
						continue
					}
					alloc := finder.AllocationAt(i)
					if tagger.TagFromAllocation(r.ctx, phase, i, alloc) {
						continue
					}
					for _, refIndex := range graph.IncomingEdges(i) {
						if tags.IsTagged(i) {
							break
						}
						referrer := finder.AllocationAt(refIndex)
						tagger.TagFromReferenced(r.ctx, phase, i, alloc, refIndex, referrer)
					}
				}
				if countTagged(tags, n) == before {
					break
				}
			}
		}
	}
}

// countTagged counts how many of the first n allocations carry a tag.
func countTagged(tags *TagHolder, n int) int {
	count := 0
	for i := 0; i < n; i++ {
		if tags.IsTagged(i) {
			count++
		}
	}
	return count
}

func participatesIn[W core.Word](t Tagger[W], phase Phase) bool {
	for _, p := range t.Phases() {
		if p == phase {
			return true
		}
	}
	return false
}
