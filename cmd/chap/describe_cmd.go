// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GDLynx/chap/describe"
)

var explain bool

func init() {
	describeCmd.Flags().BoolVar(&explain, "explain", false, "show the reasoning behind each description, not just the verdict")
}

var describeCmd = &cobra.Command{
	Use:   "describe corefile address",
	Short: "describe the allocation at the given address",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := openImage(args[:1])
		if err != nil {
			return err
		}
		addr, err := parseHex(args[1])
		if err != nil {
			return fmt.Errorf("address: %w", err)
		}

		registry := describe.NewRegistry[uint64](img.Finder, img.Tags)
		registry.Register("LongString", describe.NewLongString[uint64](img.AddressMap))
		registry.Register("SSL_CTX", describe.NewSSLCtx[uint64]())
		registry.Register("vector body", describe.NewVectorBody[uint64](img.Finder, img.Graph, img.Anchors, img.ByteOrder))
		registry.Register("deque block", describe.NewGeneric[uint64]("deque block"))
		registry.Register("list node", describe.NewGeneric[uint64]("list node"))
		registry.Register("map or set node", describe.NewGeneric[uint64]("map or set node"))
		registry.Register("unordered map or set buckets", describe.NewGeneric[uint64]("unordered map or set buckets"))
		registry.Register("COWString", describe.NewGeneric[uint64]("COWString"))
		registry.Register("PyObject", describe.NewGeneric[uint64]("PyObject"))

		if !registry.Describe(os.Stdout, addr, explain, true) {
			fmt.Printf("%#x is not a recognized allocation.\n", addr)
		}
		return nil
	},
}
