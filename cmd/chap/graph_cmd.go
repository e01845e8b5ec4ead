// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
	"github.com/spf13/cobra"
)

var graphOut string

func init() {
	graphCmd.Flags().StringVar(&graphOut, "out", "chap.dot", "file to write the DOT graph to")
}

var graphCmd = &cobra.Command{
	Use:   "graph corefile",
	Short: "dump the allocation pointer graph to a DOT file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := openImage(args)
		if err != nil {
			return err
		}

		g := graph.New(graph.IntHash, graph.Directed())
		n := img.Finder.NumAllocations()
		for i := 0; i < n; i++ {
			label := fmt.Sprintf("%#x", img.Finder.AllocationAt(i).Address)
			if tagIndex := img.Tags.GetTagIndex(i); tagIndex >= 0 {
				label += "\n" + img.Tags.TagName(tagIndex)
			}
			if err := g.AddVertex(i, graph.VertexAttribute("label", label)); err != nil {
				return fmt.Errorf("adding vertex %d: %w", i, err)
			}
		}
		for i := 0; i < n; i++ {
			for _, j := range img.Graph.OutgoingEdges(i) {
				if err := g.AddEdge(i, j); err != nil && err != graph.ErrEdgeAlreadyExists {
					return fmt.Errorf("adding edge %d->%d: %w", i, j, err)
				}
			}
		}

		f, err := os.Create(graphOut)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := draw.DOT(g, f); err != nil {
			return fmt.Errorf("writing DOT: %w", err)
		}
		fmt.Printf("wrote %s\n", graphOut)
		return nil
	},
}
