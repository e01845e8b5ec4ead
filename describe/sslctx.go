// Copyright 2018-2019 VMware, Inc.
// SPDX-License-Identifier: GPL-2.0

package describe

import (
	"fmt"
	"io"

	"github.com/GDLynx/chap/allocations"
	"github.com/GDLynx/chap/core"
)

// SSLCtx describes allocations tagged "SSL_CTX".
type SSLCtx[W core.Word] struct{}

func NewSSLCtx[W core.Word]() *SSLCtx[W] { return &SSLCtx[W]{} }

func (d *SSLCtx[W]) PatternName() string { return "SSL_CTX" }

func (d *SSLCtx[W]) DescribePattern(w io.Writer, index int, alloc allocations.Allocation[W], explain bool) {
	fmt.Fprintf(w, "This allocation matches pattern SSL_CTX.\n")
	if explain {
		fmt.Fprintf(w, "The first pointer points to what appears to be an SSL_METHOD structure.\n")
	}
}
