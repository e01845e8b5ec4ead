// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command chap is a command-line tool for exploring the allocations
// of a process that has dumped core. Run "chap help" for a list of
// commands.
package main

import (
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/GDLynx/chap/allocations"
	"github.com/GDLynx/chap/config"
	"github.com/GDLynx/chap/coreimage"
	"github.com/GDLynx/chap/process"
)

var v = config.Defaults()

var rootCmd = &cobra.Command{
	Use:   "chap corefile",
	Short: "chap analyzes the heap allocations recorded in a core file",
}

var (
	execPath   string
	heapMinHex string
	heapMaxHex string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&execPath, "exe", "", "path to the executable that produced the core file")
	rootCmd.PersistentFlags().StringVar(&heapMinHex, "heap-min", "", "start address of the heap arena to scan (hex)")
	rootCmd.PersistentFlags().StringVar(&heapMaxHex, "heap-max", "", "end address of the heap arena to scan (hex)")

	rootCmd.AddCommand(overviewCmd, mappingsCmd, allocationsCmd, describeCmd, graphCmd, shellCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("chap failed")
		os.Exit(1)
	}
}

// openImage loads the core file named by args[0] and runs the
// allocation finder and all taggers over it, ready for any of the
// inspection subcommands.
func openImage(args []string) (*process.Image[uint64], error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("expected exactly one core file argument")
	}
	loaded, err := coreimage.Load(args[0], execPath)
	if err != nil {
		return nil, err
	}

	img := process.New[uint64](loaded.AddressMap, loaded.ThreadMap, loaded.Modules, loaded.ByteOrder)

	heapRanges, err := resolveHeapRanges(loaded)
	if err != nil {
		return nil, err
	}
	img.FindAllocations(heapRanges)
	img.TagAllocations(config.Load(v))
	return img, nil
}

// resolveHeapRanges turns --heap-min/--heap-max into a HeapRange, or
// falls back to scanning every writable, non-executable segment
// (thread stacks included) —
// a coarse default that works for small, single-arena test programs
// but will walk non-heap data as if it were allocator metadata on
// anything bigger, hence the flags to narrow it.
func resolveHeapRanges(loaded *coreimage.Loaded) ([]allocations.HeapRange[uint64], error) {
	if heapMinHex != "" && heapMaxHex != "" {
		min, err := parseHex(heapMinHex)
		if err != nil {
			return nil, fmt.Errorf("--heap-min: %w", err)
		}
		max, err := parseHex(heapMaxHex)
		if err != nil {
			return nil, fmt.Errorf("--heap-max: %w", err)
		}
		return []allocations.HeapRange[uint64]{{Min: min, Max: max}}, nil
	}

	var ranges []allocations.HeapRange[uint64]
	for _, seg := range loaded.AddressMap.Segments() {
		attrs := seg.Attributes()
		if attrs.Writable && !attrs.Executable {
			ranges = append(ranges, allocations.HeapRange[uint64]{Min: seg.Min, Max: seg.Max})
		}
	}
	return ranges, nil
}

func parseHex(s string) (uint64, error) {
	var v uint64
	_, err := fmt.Sscanf(s, "%x", &v)
	return v, err
}
