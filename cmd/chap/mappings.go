// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GDLynx/chap/core"
)

var mappingsCmd = &cobra.Command{
	Use:   "mappings corefile",
	Short: "print virtual memory mappings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := openImage(args)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "min\tmax\tperm\tfile")
		for _, seg := range img.AddressMap.Segments() {
			fmt.Fprintf(tw, "%#x\t%#x\t%s\t%s\n", seg.Min, seg.Max, permString(seg.Attributes()), seg.FileName)
		}
		return tw.Flush()
	},
}

func permString(a core.RangeAttributes) string {
	s := []byte("----")
	if a.Readable {
		s[0] = 'r'
	}
	if a.Writable {
		s[1] = 'w'
	}
	if a.Executable {
		s[2] = 'x'
	}
	if a.FileBacked {
		s[3] = 'f'
	}
	return string(s)
}
