// Copyright 2019 VMware, Inc.
// SPDX-License-Identifier: GPL-2.0

// Package config holds the handful of policy knobs the engine's
// behavior depends on, backed by viper so they can come from a flag,
// an environment variable, or a config file the way the rest of the
// pack's CLIs do it.
package config

import (
	"github.com/spf13/viper"
)

const (
	keyLongStringMinLength  = "tagging.long-string-min-length"
	keyVectorAmbiguityFirst = "tagging.vector-ambiguity-prefer-first"
	keyShowAddresses        = "describe.show-addresses"
)

// Policy is the resolved set of knobs the tagging and describing
// passes consult. It's a snapshot, not a live view: callers build one
// once per run from whatever viper instance they've populated from
// flags/env/config file, so a run's behavior can't drift mid-pass.
type Policy struct {
	// LongStringMinLength is the minimum NUL-terminated run length
	// the LongString tagger treats as a candidate match.
	LongStringMinLength int

	// VectorAmbiguityPreferFirst resolves the case where more than one
	// anchor plausibly owns the same vector body (the "??? fix here"
	// case the original vector tagger flags): when true, the anchor
	// found earliest in ascending anchor-address order wins; when
	// false, the one found latest wins instead.
	VectorAmbiguityPreferFirst bool

	// ShowAddresses is the configured choice of whether top-level
	// Describe output repeats the address being described. The chap
	// describe and shell commands do not read it; they always pass
	// true.
	ShowAddresses bool
}

func Defaults() *viper.Viper {
	v := viper.New()
	v.SetDefault(keyLongStringMinLength, 24)
	v.SetDefault(keyVectorAmbiguityFirst, true)
	v.SetDefault(keyShowAddresses, true)
	return v
}

// Load resolves a Policy from v, which the caller has already bound
// to flags, environment variables, and/or a config file as it sees
// fit.
func Load(v *viper.Viper) *Policy {
	return &Policy{
		LongStringMinLength:        v.GetInt(keyLongStringMinLength),
		VectorAmbiguityPreferFirst: v.GetBool(keyVectorAmbiguityFirst),
		ShowAddresses:              v.GetBool(keyShowAddresses),
	}
}
