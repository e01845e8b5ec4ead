// Copyright 2018-2019 VMware, Inc.
// SPDX-License-Identifier: GPL-2.0

package taggers

import (
	"github.com/GDLynx/chap/allocations"
	"github.com/GDLynx/chap/core"
)

// SSLCtx recognizes an SSL_CTX allocation by its first word: OpenSSL
// builds every SSL_CTX with its method pointer as the very first
// field, pointing at one of a small fixed set of SSL_METHOD statics
// compiled into libssl. The signature directory is where those
// well-known addresses get a name; this tagger never parses OpenSSL's
// struct layout itself, it just asks whether the first word matches
// a registered SSL_METHOD signature.
type SSLCtx[W core.Word] struct {
	tagIndex int
}

func NewSSLCtx[W core.Word](tags *allocations.TagHolder) *SSLCtx[W] {
	return &SSLCtx[W]{tagIndex: tags.RegisterTag("SSL_CTX")}
}

func (t *SSLCtx[W]) Name() string { return "SSL_CTX" }

func (t *SSLCtx[W]) Phases() []allocations.Phase {
	return []allocations.Phase{allocations.MediumCheck}
}

func (t *SSLCtx[W]) TagFromAllocation(ctx *allocations.TagContext[W], phase allocations.Phase, index int, alloc allocations.Allocation[W]) bool {
	if phase != allocations.MediumCheck {
		return false
	}
	wordSize := core.WordSize[W]()
	if alloc.Size < wordSize {
		return false
	}
	reader := core.NewReader(ctx.Finder.AddressMap())
	first, ok := reader.ReadWord(alloc.Address, ctx.ByteOrder)
	if !ok {
		return false
	}
	name, ok := ctx.Signatures.NameOf(first)
	if !ok || name != "SSL_METHOD" {
		return false
	}
	return ctx.Tags.TagAllocation(index, t.tagIndex)
}

func (t *SSLCtx[W]) TagFromReferenced(ctx *allocations.TagContext[W], phase allocations.Phase, index int, alloc allocations.Allocation[W], referrerIndex int, referrer allocations.Allocation[W]) bool {
	return false
}
