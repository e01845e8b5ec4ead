// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/GDLynx/chap/describe"
)

var shellCmd = &cobra.Command{
	Use:   "shell corefile",
	Short: "start an interactive shell for exploring a core file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := openImage(args)
		if err != nil {
			return err
		}

		registry := describe.NewRegistry[uint64](img.Finder, img.Tags)
		registry.Register("LongString", describe.NewLongString[uint64](img.AddressMap))
		registry.Register("SSL_CTX", describe.NewSSLCtx[uint64]())

		rl, err := readline.New("chap> ")
		if err != nil {
			return err
		}
		defer rl.Close()

		fmt.Println(img.Overview())
		fmt.Println(`enter an address to describe it, "overview", or "quit"`)
		for {
			line, err := rl.Readline()
			if err == io.EOF || err == readline.ErrInterrupt {
				return nil
			}
			if err != nil {
				return err
			}
			line = strings.TrimSpace(line)
			switch line {
			case "":
				continue
			case "quit", "exit":
				return nil
			case "overview":
				fmt.Println(img.Overview())
				continue
			}
			addr, err := parseHex(line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "not an address or command: %q\n", line)
				continue
			}
			if !registry.Describe(os.Stdout, addr, true, true) {
				fmt.Printf("%#x is not a recognized allocation.\n", addr)
			}
		}
	},
}
