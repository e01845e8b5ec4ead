// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package threads holds per-thread stack and register state as
// captured at snapshot time. It is a pure data container: extracting
// this information from a core file is the loader's job (see
// coreimage), not this package's.
package threads

import "github.com/GDLynx/chap/core"

// A Register is one named machine register and its value at the
// moment the snapshot was taken.
type Register[W core.Word] struct {
	Name  string
	Value W
}

// Thread is one OS thread: its stack extent and register file.
//
// StackBase may be greater than StackLimit on architectures where the
// stack grows downward — callers must use Range, not the raw fields,
// to get a normalized [min,max) interval.
type Thread[W core.Word] struct {
	ThreadNum  int
	StackBase  W
	StackLimit W
	Registers  []Register[W]
}

// Range returns the thread's stack as a normalized half-open interval.
func (t *Thread[W]) Range() (min, max W) {
	if t.StackBase <= t.StackLimit {
		return t.StackBase, t.StackLimit
	}
	return t.StackLimit, t.StackBase
}

// RegisterValue returns the value of the named register and whether
// it was present in this thread's register file.
func (t *Thread[W]) RegisterValue(name string) (W, bool) {
	for _, r := range t.Registers {
		if r.Name == name {
			return r.Value, true
		}
	}
	return 0, false
}

// ThreadMap is the read-only, snapshot-ordered collection of threads.
type ThreadMap[W core.Word] struct {
	threads []*Thread[W]
}

func NewThreadMap[W core.Word](ts []*Thread[W]) *ThreadMap[W] {
	return &ThreadMap[W]{threads: ts}
}

func (tm *ThreadMap[W]) NumThreads() int          { return len(tm.threads) }
func (tm *ThreadMap[W]) ThreadAt(i int) *Thread[W] { return tm.threads[i] }
func (tm *ThreadMap[W]) All() []*Thread[W]         { return tm.threads }
