// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package allocations

// NoTag is the sentinel tag index meaning "untagged".
const NoTag = -1

// TagHolder owns the name-to-index mapping for tags and the
// first-writer-wins assignment of a tag to each allocation. Because
// TagAllocation refuses to overwrite an existing tag, TagConflict
// (core.IssueKind) is a policy name, not something this type ever
// actually raises.
type TagHolder struct {
	names       []string
	nameToIndex map[string]int
	tags        []int
}

// NewTagHolder allocates a tag holder for a fixed number of
// allocations, all initially untagged.
func NewTagHolder(numAllocations int) *TagHolder {
	tags := make([]int, numAllocations)
	for i := range tags {
		tags[i] = NoTag
	}
	return &TagHolder{nameToIndex: make(map[string]int), tags: tags}
}

// RegisterTag returns the tag index for name, allocating one the
// first time it is seen. Taggers call this once, at construction.
func (h *TagHolder) RegisterTag(name string) int {
	if i, ok := h.nameToIndex[name]; ok {
		return i
	}
	i := len(h.names)
	h.names = append(h.names, name)
	h.nameToIndex[name] = i
	return i
}

// TagAllocation assigns tagIndex to the given allocation if and only
// if it is not already tagged. Reports whether the assignment took.
func (h *TagHolder) TagAllocation(allocationIndex, tagIndex int) bool {
	if h.tags[allocationIndex] != NoTag {
		return false
	}
	h.tags[allocationIndex] = tagIndex
	return true
}

// GetTagIndex returns the tag assigned to an allocation, or NoTag.
func (h *TagHolder) GetTagIndex(allocationIndex int) int {
	return h.tags[allocationIndex]
}

// TagName returns the name registered for a tag index.
func (h *TagHolder) TagName(tagIndex int) string {
	if tagIndex < 0 || tagIndex >= len(h.names) {
		return ""
	}
	return h.names[tagIndex]
}

// IsTagged reports whether an allocation has been assigned any tag.
func (h *TagHolder) IsTagged(allocationIndex int) bool {
	return h.tags[allocationIndex] != NoTag
}
