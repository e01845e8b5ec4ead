// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var allocationsCmd = &cobra.Command{
	Use:   "allocations corefile",
	Short: "list all recovered allocations and their tags, if any",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := openImage(args)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "address\tsize\tused\tpattern")
		for i := 0; i < img.Finder.NumAllocations(); i++ {
			alloc := img.Finder.AllocationAt(i)
			pattern := "-"
			if tagIndex := img.Tags.GetTagIndex(i); tagIndex >= 0 {
				pattern = img.Tags.TagName(tagIndex)
			}
			fmt.Fprintf(tw, "%#x\t%s\t%v\t%s\n", alloc.Address, humanize.Bytes(uint64(alloc.Size)), alloc.Used, pattern)
		}
		return tw.Flush()
	},
}
