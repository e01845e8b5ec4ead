// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package moduledir catalogs the loaded shared objects and executable
// segments observed in a snapshot — the external collaborator spec
// calls ModuleDirectory. The LongString tagger consults it to learn
// whether the C++ runtime is loaded, and process.Image uses it to name
// static anchors by the module segment they fall in, without the
// engine itself ever parsing symbol tables.
package moduledir

import (
	"strings"

	"github.com/GDLynx/chap/core"
)

// CppRuntimeModule is the path fragment a loaded C++ runtime publishes
// itself under. LongString's layout heuristic is specific to the
// libstdc++ std::string ABI, so the tagger treats this module's mere
// presence in the directory as that ABI's published signature: there
// is no single symbol or text range to point at, only the fact that
// the runtime implementing that layout is loaded at all.
const CppRuntimeModule = "libstdc++"

// A Segment is one mapped, named region belonging to a module: its
// text (code), its read-only or writable data, and so on.
type Segment[W core.Word] struct {
	Min, Max W
	Name     string // e.g. "libssl.so.1.1:.text"
}

func (s Segment[W]) Contains(addr W) bool { return addr >= s.Min && addr < s.Max }

// A Module is one loaded object and the segments it owns.
type Module[W core.Word] struct {
	Path     string
	Segments []Segment[W]
}

// Directory is ModuleDirectory: a read-only, build-once-then-query
// catalog of loaded modules, searchable by address.
type Directory[W core.Word] struct {
	modules  []*Module[W]
	segments []Segment[W] // flattened, sorted by Min, for address lookup
}

func New[W core.Word](modules []*Module[W]) *Directory[W] {
	d := &Directory[W]{modules: modules}
	for _, m := range modules {
		d.segments = append(d.segments, m.Segments...)
	}
	for i := 1; i < len(d.segments); i++ {
		for j := i; j > 0 && d.segments[j-1].Min > d.segments[j].Min; j-- {
			d.segments[j-1], d.segments[j] = d.segments[j], d.segments[j-1]
		}
	}
	return d
}

// Modules returns the catalog in discovery order.
func (d *Directory[W]) Modules() []*Module[W] { return d.modules }

// SegmentAt returns the named module segment covering addr, if any.
// process.Image uses it to name each static anchor after the segment
// it falls in (e.g. "libssl.so.1.1:.data").
func (d *Directory[W]) SegmentAt(addr W) (Segment[W], bool) {
	lo, hi := 0, len(d.segments)
	for lo < hi {
		mid := (lo + hi) / 2
		if d.segments[mid].Max <= addr {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(d.segments) && d.segments[lo].Contains(addr) {
		return d.segments[lo], true
	}
	return Segment[W]{}, false
}

// PublishesCppRuntime reports whether a module matching CppRuntimeModule
// is loaded. Taggers that recognize ABI-specific layouts owned by the
// C++ runtime (std::string's long-form representation, for instance)
// consult this before trusting a byte-level heuristic.
func (d *Directory[W]) PublishesCppRuntime() bool {
	for _, m := range d.modules {
		if strings.Contains(m.Path, CppRuntimeModule) {
			return true
		}
	}
	return false
}

// InModule reports whether addr lands anywhere inside the named
// module's mapped segments.
func (d *Directory[W]) InModule(addr W, modulePath string) bool {
	seg, ok := d.SegmentAt(addr)
	if !ok {
		return false
	}
	for _, m := range d.modules {
		if m.Path != modulePath {
			continue
		}
		for _, s := range m.Segments {
			if s.Min == seg.Min && s.Max == seg.Max {
				return true
			}
		}
	}
	return false
}
