// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package coreimage is the demonstration loader: it turns an ELF core
// file (plus, optionally, the executable that produced it) into the
// core.AddressMap, threads.ThreadMap and moduledir.Directory the rest
// of the engine consumes. It is one possible external collaborator —
// a real deployment might load from a different capture format
// entirely — kept here to exercise the engine end to end without
// requiring a live inferior.
package coreimage

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/GDLynx/chap/core"
	"github.com/GDLynx/chap/moduledir"
	"github.com/GDLynx/chap/threads"
)

// amd64 GP register order within elf_prstatus.pr_reg, per sys/user.h.
var amd64RegisterNames = []string{
	"r15", "r14", "r13", "r12", "rbp", "rbx", "r11", "r10",
	"r9", "r8", "rax", "rcx", "rdx", "rsi", "rdi", "orig_rax",
	"rip", "cs", "eflags", "rsp", "ss", "fs_base", "gs_base",
	"ds", "es", "fs", "gs",
}

const (
	amd64PrPidOffset = 32
	amd64PrRegOffset = 112
	amd64PrRegSize   = 216
)

// Loaded is everything a process.Image needs, resolved from a core
// file.
type Loaded struct {
	AddressMap *core.AddressMap[uint64]
	ThreadMap  *threads.ThreadMap[uint64]
	Modules    *moduledir.Directory[uint64]
	ByteOrder  core.ByteOrder
}

// Load parses coreFile's PT_LOAD segments and NT_PRSTATUS notes into
// a Loaded bundle. execPath, if non-empty, additionally contributes
// the main executable's section layout to the module directory (the
// core file's own PT_LOAD segments already provide the bytes; sections
// from the executable are only consulted for naming .text/.data).
func Load(coreFile, execPath string) (*Loaded, error) {
	f, err := os.Open(coreFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ef, err := elf.NewFile(f)
	if err != nil {
		return nil, fmt.Errorf("parsing core file: %w", err)
	}
	if ef.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("only 64-bit core files are supported")
	}

	loaded := &Loaded{ByteOrder: ef.ByteOrder}

	var segments []*core.Segment[uint64]
	var threadList []*threads.Thread[uint64]
	threadNum := 0

	for _, prog := range ef.Progs {
		switch prog.Type {
		case elf.PT_LOAD:
			seg, err := mapLoadSegment(f, prog)
			if err != nil {
				return nil, fmt.Errorf("mapping PT_LOAD at %#x: %w", prog.Vaddr, err)
			}
			segments = append(segments, seg)
		case elf.PT_NOTE:
			notes, err := readNotes(f, prog.Off, prog.Filesz, ef.ByteOrder)
			if err != nil {
				return nil, fmt.Errorf("reading notes: %w", err)
			}
			for _, n := range notes {
				if n.typ != elf.NT_PRSTATUS {
					continue
				}
				threadNum++
				t, err := parsePRStatus(n.desc, threadNum, ef.ByteOrder)
				if err != nil {
					return nil, fmt.Errorf("parsing NT_PRSTATUS: %w", err)
				}
				threadList = append(threadList, t)
			}
		}
	}

	loaded.AddressMap = core.NewAddressMap(segments)
	loaded.ThreadMap = threads.NewThreadMap(threadList)
	loaded.Modules = moduledir.New[uint64](modulesFromExecutable(execPath))
	return loaded, nil
}

// mapLoadSegment backs a PT_LOAD program header with a zero-copy
// mmap of the core file for the part the file actually stores, padded
// with zero bytes for any extra bss the program header declares
// (Memsz > Filesz). The mapping stays valid after Load closes the
// core file; it is never unmapped.
func mapLoadSegment(f *os.File, prog *elf.Prog) (*core.Segment[uint64], error) {
	var data []byte
	if prog.Filesz > 0 {
		mapped, err := unix.Mmap(int(f.Fd()), int64(prog.Off), int(prog.Filesz), unix.PROT_READ, unix.MAP_SHARED)
		if err != nil {
			return nil, err
		}
		data = mapped
	}
	if prog.Memsz > prog.Filesz {
		padded := make([]byte, prog.Memsz)
		copy(padded, data)
		if data != nil {
			_ = unix.Munmap(data)
		}
		data = padded
	}

	var perm core.Perm
	if prog.Flags&elf.PF_R != 0 {
		perm |= core.Read
	}
	if prog.Flags&elf.PF_W != 0 {
		perm |= core.Write
	}
	if prog.Flags&elf.PF_X != 0 {
		perm |= core.Exec
	}

	return core.NewSegment(prog.Vaddr, prog.Vaddr+prog.Memsz, perm, "", data), nil
}

type note struct {
	typ  elf.NType
	name string
	desc []byte
}

func readNotes(f *os.File, off, size uint64, order binary.ByteOrder) ([]note, error) {
	b := make([]byte, size)
	if _, err := f.ReadAt(b, int64(off)); err != nil {
		return nil, err
	}
	var notes []note
	for len(b) >= 12 {
		namesz := order.Uint32(b)
		b = b[4:]
		descsz := order.Uint32(b)
		b = b[4:]
		typ := elf.NType(order.Uint32(b))
		b = b[4:]

		name := string(bytes.TrimRight(b[:namesz], "\x00"))
		b = b[align4(namesz):]
		desc := b[:descsz]
		b = b[align4(descsz):]

		notes = append(notes, note{typ: typ, name: name, desc: desc})
	}
	return notes, nil
}

func align4(n uint32) uint32 { return (n + 3) &^ 3 }

func parsePRStatus(desc []byte, threadNum int, order binary.ByteOrder) (*threads.Thread[uint64], error) {
	if len(desc) < amd64PrRegOffset+amd64PrRegSize {
		return nil, fmt.Errorf("NT_PRSTATUS descriptor too short")
	}
	reg := desc[amd64PrRegOffset : amd64PrRegOffset+amd64PrRegSize]

	t := &threads.Thread[uint64]{ThreadNum: threadNum}
	for i, name := range amd64RegisterNames {
		off := i * 8
		if off+8 > len(reg) {
			break
		}
		t.Registers = append(t.Registers, threads.Register[uint64]{Name: name, Value: order.Uint64(reg[off:])})
	}
	if sp, ok := t.RegisterValue("rsp"); ok {
		// The stack's upper bound isn't in prstatus, and nothing in
		// this loader derives it, so the thread's stack range is
		// empty (StackBase == StackLimit == rsp) and no stack anchors
		// are found for it.
		t.StackBase = sp
		t.StackLimit = sp
	}
	return t, nil
}

// modulesFromExecutable is a narrow stand-in for real module
// discovery: it reports the main executable's own section layout, if
// a path was given, and nothing for shared libraries (those would
// come from walking the core's NT_FILE note and opening each mapped
// file in turn, which this demo loader doesn't do).
func modulesFromExecutable(execPath string) []*moduledir.Module[uint64] {
	if execPath == "" {
		return nil
	}
	f, err := os.Open(execPath)
	if err != nil {
		return nil
	}
	defer f.Close()

	ef, err := elf.NewFile(f)
	if err != nil {
		return nil
	}

	m := &moduledir.Module[uint64]{Path: execPath}
	for _, sec := range ef.Sections {
		if sec.Addr == 0 || sec.Size == 0 {
			continue
		}
		m.Segments = append(m.Segments, moduledir.Segment[uint64]{
			Min:  sec.Addr,
			Max:  sec.Addr + sec.Size,
			Name: execPath + ":" + sec.Name,
		})
	}
	return []*moduledir.Module[uint64]{m}
}
