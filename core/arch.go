// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package core

import "encoding/binary"

// Architecture carries the few inferior-machine details the engine
// needs to interpret raw bytes: how wide a pointer is and which end
// is first. Everything else (register layout, calling convention) is
// the loader's problem, not the analysis engine's.
type Architecture struct {
	Name        string
	PointerSize int
	ByteOrder   binary.ByteOrder
}

var (
	AMD64 = Architecture{Name: "amd64", PointerSize: 8, ByteOrder: binary.LittleEndian}
	ARM64 = Architecture{Name: "arm64", PointerSize: 8, ByteOrder: binary.LittleEndian}
	I386  = Architecture{Name: "386", PointerSize: 4, ByteOrder: binary.LittleEndian}
	ARM   = Architecture{Name: "arm", PointerSize: 4, ByteOrder: binary.LittleEndian}
)

// Architectures indexed by ELF e_machine name, for loaders that only
// know the machine string.
var Architectures = map[string]Architecture{
	"amd64": AMD64,
	"arm64": ARM64,
	"386":   I386,
	"arm":   ARM,
}
