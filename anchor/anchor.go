// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package anchor holds AnchorDirectory: the named sets of root
// addresses (static storage, stacks, registers) that the allocation
// graph treats as externally reachable without themselves being
// allocations. Describers use Resolve to cite an anchor by name (the
// vector body describer does, in its explanation); no tagger reads
// the directory.
package anchor

import "github.com/GDLynx/chap/core"

// Kind distinguishes where an anchor word was found.
type Kind int

const (
	Static Kind = iota
	Stack
	Register
)

func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case Stack:
		return "stack"
	case Register:
		return "register"
	default:
		return "unknown"
	}
}

// Directory is AnchorDirectory: named, kind-tagged sets of anchor
// addresses, discovered once while building the allocation graph and
// queried read-only afterward.
type Directory[W core.Word] struct {
	sets      map[string][]W
	kind      map[string]Kind
	byAddress map[W]string
}

func New[W core.Word]() *Directory[W] {
	return &Directory[W]{sets: make(map[string][]W), kind: make(map[string]Kind), byAddress: make(map[W]string)}
}

// Register records addr as belonging to the named anchor set. The
// first name registered for a given address wins the reverse lookup
// Resolve uses — an address legitimately belongs to only one named
// set in practice (one module segment, one thread's stack).
func (d *Directory[W]) Register(name string, kind Kind, addr W) {
	if _, ok := d.kind[name]; !ok {
		d.kind[name] = kind
	}
	d.sets[name] = append(d.sets[name], addr)
	if _, ok := d.byAddress[addr]; !ok {
		d.byAddress[addr] = name
	}
}

// Resolve returns the name of the anchor set addr was registered
// under, if any. Describers use this to cite a human-meaningful
// anchor name ("libssl.so.1.1:.data", "thread 3 stack") instead of a
// bare address.
func (d *Directory[W]) Resolve(addr W) (string, bool) {
	name, ok := d.byAddress[addr]
	return name, ok
}

// Names returns the registered anchor-set names.
func (d *Directory[W]) Names() []string {
	names := make([]string, 0, len(d.sets))
	for n := range d.sets {
		names = append(names, n)
	}
	return names
}

// Addresses returns the addresses registered under name, in anchor
// registration order.
func (d *Directory[W]) Addresses(name string) []W { return d.sets[name] }

// KindOf returns the kind of the named anchor set.
func (d *Directory[W]) KindOf(name string) (Kind, bool) {
	k, ok := d.kind[name]
	return k, ok
}
