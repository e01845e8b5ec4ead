// Copyright 2019 VMware, Inc.
// SPDX-License-Identifier: GPL-2.0

package taggers

import (
	"github.com/GDLynx/chap/allocations"
	"github.com/GDLynx/chap/core"
)

// PyObject recognizes a CPython object header: every PyObject begins
// with a reference count word followed by a type-object pointer, and
// the signature directory is where well-known built-in type objects
// (PyLong_Type, PyDict_Type, and so on) get registered by address.
// Like SSLCtx, this tagger never parses CPython's struct layout
// beyond that first-two-words contract.
type PyObject[W core.Word] struct {
	tagIndex int
}

func NewPyObject[W core.Word](tags *allocations.TagHolder) *PyObject[W] {
	return &PyObject[W]{tagIndex: tags.RegisterTag("PyObject")}
}

func (t *PyObject[W]) Name() string { return "PyObject" }

func (t *PyObject[W]) Phases() []allocations.Phase {
	return []allocations.Phase{allocations.MediumCheck}
}

func (t *PyObject[W]) TagFromAllocation(ctx *allocations.TagContext[W], phase allocations.Phase, index int, alloc allocations.Allocation[W]) bool {
	if phase != allocations.MediumCheck {
		return false
	}
	wordSize := core.WordSize[W]()
	if alloc.Size < 2*wordSize {
		return false
	}
	reader := core.NewReader(ctx.Finder.AddressMap())
	refcount, ok := reader.ReadWord(alloc.Address, ctx.ByteOrder)
	if !ok || refcount == 0 {
		return false
	}
	typePtr, ok := reader.ReadWord(alloc.Address+wordSize, ctx.ByteOrder)
	if !ok {
		return false
	}
	if _, known := ctx.Signatures.NameOf(typePtr); !known {
		return false
	}
	return ctx.Tags.TagAllocation(index, t.tagIndex)
}

func (t *PyObject[W]) TagFromReferenced(ctx *allocations.TagContext[W], phase allocations.Phase, index int, alloc allocations.Allocation[W], referrerIndex int, referrer allocations.Allocation[W]) bool {
	return false
}
