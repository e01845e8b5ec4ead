// Copyright 2019 VMware, Inc.
// SPDX-License-Identifier: GPL-2.0

package describe

import (
	"bytes"
	"fmt"
	"io"

	"github.com/GDLynx/chap/allocations"
	"github.com/GDLynx/chap/core"
	"github.com/dustin/go-humanize"
)

// longStringTruncationLength is the point past which an unexplained
// LongString description shows only a prefix rather than the whole
// string.
const longStringTruncationLength = 77

// LongString describes allocations tagged "LongString": it shows the
// string's length (exactly, in hex, for scripting) and its content,
// truncated unless the caller asked for an explanation or the string
// is short enough to show in full anyway.
type LongString[W core.Word] struct {
	addressMap *core.AddressMap[W]
}

func NewLongString[W core.Word](addressMap *core.AddressMap[W]) *LongString[W] {
	return &LongString[W]{addressMap: addressMap}
}

func (d *LongString[W]) PatternName() string { return "LongString" }

func (d *LongString[W]) DescribePattern(w io.Writer, index int, alloc allocations.Allocation[W], explain bool) {
	image := allocations.NewContiguousImage[W](d.addressMap, alloc)
	data := image.Bytes()
	nul := bytes.IndexByte(data, 0)
	if nul < 0 {
		nul = len(data)
	}

	fmt.Fprintf(w, "This allocation matches pattern LongString.\n")
	fmt.Fprintf(w, "The string has %#x bytes (%s), ", nul, humanize.Bytes(uint64(nul)))
	if explain || nul < longStringTruncationLength {
		fmt.Fprintf(w, "containing\n%q.\n", data[:nul])
	} else {
		fmt.Fprintf(w, "starting with\n%q.\n", data[:longStringTruncationLength])
	}
}
