// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package allocations

import "testing"

func TestTagHolderFirstWriterWins(t *testing.T) {
	h := NewTagHolder(2)
	vector := h.RegisterTag("vector body")
	list := h.RegisterTag("list node")

	if h.IsTagged(0) {
		t.Fatalf("allocation 0 should start untagged")
	}
	if !h.TagAllocation(0, vector) {
		t.Fatalf("first TagAllocation should succeed")
	}
	if h.TagAllocation(0, list) {
		t.Fatalf("second TagAllocation should be refused")
	}
	if got := h.GetTagIndex(0); got != vector {
		t.Errorf("GetTagIndex(0) = %d, want %d", got, vector)
	}
	if name := h.TagName(vector); name != "vector body" {
		t.Errorf("TagName(vector) = %q, want %q", name, "vector body")
	}
	if h.IsTagged(1) {
		t.Errorf("allocation 1 should remain untagged")
	}
}

func TestTagHolderRegisterTagIsIdempotent(t *testing.T) {
	h := NewTagHolder(1)
	a := h.RegisterTag("LongString")
	b := h.RegisterTag("LongString")
	if a != b {
		t.Fatalf("RegisterTag should return the same index for the same name: %d != %d", a, b)
	}
}

func TestTagHolderTagNameOutOfRange(t *testing.T) {
	h := NewTagHolder(1)
	if name := h.TagName(NoTag); name != "" {
		t.Errorf("TagName(NoTag) = %q, want empty", name)
	}
	if name := h.TagName(99); name != "" {
		t.Errorf("TagName(99) = %q, want empty", name)
	}
}
