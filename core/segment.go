// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package core

import "strings"

// A Perm represents the permissions a Segment was mapped with in the
// inferior.
type Perm uint8

const (
	Read Perm = 1 << iota
	Write
	Exec
)

func (p Perm) String() string {
	var parts []string
	if p&Read != 0 {
		parts = append(parts, "Read")
	}
	if p&Write != 0 {
		parts = append(parts, "Write")
	}
	if p&Exec != 0 {
		parts = append(parts, "Exec")
	}
	if len(parts) == 0 {
		parts = append(parts, "None")
	}
	return strings.Join(parts, "|")
}

// RangeAttributes is the public, copyable view of a Segment's flags,
// handed out by AddressMap iteration so callers don't need the
// backing bytes to classify a range.
type RangeAttributes struct {
	Readable   bool
	Writable   bool
	Executable bool
	FileBacked bool
}

// A Segment is one contiguous, uniformly-permissioned byte range of
// the inferior's address space, as reported by a SegmentSource. The
// half-open range is [Min, Max).
type Segment[W Word] struct {
	Min, Max W
	Perm     Perm
	FileName string // backing file, or "" for anonymous/zero-filled
	bytes    []byte // length == Max-Min
}

// NewSegment wraps a byte slice as a mapped segment. len(data) must
// equal int(max-min).
func NewSegment[W Word](min, max W, perm Perm, fileName string, data []byte) *Segment[W] {
	return &Segment[W]{Min: min, Max: max, Perm: perm, FileName: fileName, bytes: data}
}

func (s *Segment[W]) Size() W { return s.Max - s.Min }

func (s *Segment[W]) Contains(a W) bool { return a >= s.Min && a < s.Max }

func (s *Segment[W]) Attributes() RangeAttributes {
	return RangeAttributes{
		Readable:   s.Perm&Read != 0,
		Writable:   s.Perm&Write != 0,
		Executable: s.Perm&Exec != 0,
		FileBacked: s.FileName != "",
	}
}

// imageAt returns the bytes backing addr and how many of them are
// contiguous, i.e. bytes[addr-Min:]. Caller must have already checked
// Contains(addr).
func (s *Segment[W]) imageAt(addr W) ([]byte, W) {
	off := addr - s.Min
	return s.bytes[off:], s.Max - addr
}
