// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package pkce

import (
	"crypto/rand"
	"io"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// tokenOptions is the set of available options for the generators
type tokenOptions struct {
	withRandReader io.Reader
}

func tokenDefaults() tokenOptions {
	return tokenOptions{
		withRandReader: rand.Reader,
	}
}

func getTokenOpts(opt ...Option) tokenOptions {
	opts := tokenDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithRandReader provides an optional source of randomness.  It's meant for
// tests; the default is crypto/rand.Reader.
func WithRandReader(r io.Reader) Option {
	return func(o interface{}) {
		if o, ok := o.(*tokenOptions); ok && r != nil {
			o.withRandReader = r
		}
	}
}
