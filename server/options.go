// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package server

import (
	"time"

	"github.com/hashicorp/go-hclog"
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

type serverOptions struct {
	withLogger         hclog.Logger
	withEnvironment    string
	withAllowedOrigins []string
	withNow            func() time.Time
	withShutdownGrace  time.Duration
}

func serverDefaults() serverOptions {
	return serverOptions{
		withLogger:         hclog.NewNullLogger(),
		withEnvironment:    "development",
		withAllowedOrigins: []string{"*"},
		withNow:            time.Now,
		withShutdownGrace:  5 * time.Second,
	}
}

func getServerOpts(opt ...Option) serverOptions {
	opts := serverDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithEnvironment names the deployment environment reported by /health
func WithEnvironment(env string) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok && env != "" {
			o.withEnvironment = env
		}
	}
}

// WithAllowedOrigins sets the CORS allowed origins.  The default, "*", allows
// every origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok && len(origins) > 0 {
			o.withAllowedOrigins = origins
		}
	}
}

// WithNow provides an optional clock.  It's meant for tests.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok && now != nil {
			o.withNow = now
		}
	}
}

// WithShutdownGrace bounds how long Serve waits for in-flight requests once
// its context is done.
func WithShutdownGrace(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok && d > 0 {
			o.withShutdownGrace = d
		}
	}
}
