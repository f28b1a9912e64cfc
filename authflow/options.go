// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package authflow

import (
	"io"
	"net/http"
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

// WithLogger provides an optional logger for: Flow, APIClient
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if l == nil {
			return
		}
		switch v := o.(type) {
		case *flowOptions:
			v.withLogger = l
		case *apiClientOptions:
			v.withLogger = l
		}
	}
}

// WithHTTPClient provides an optional http client for: APIClient,
// IdTokenVerifier
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *apiClientOptions:
			v.withHTTPClient = c
		case *verifierOptions:
			v.withHTTPClient = c
		}
	}
}

// WithTimeout provides an optional request timeout for: APIClient,
// IdTokenVerifier.  It's ignored when WithHTTPClient is used.
func WithTimeout(d time.Duration) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *apiClientOptions:
			v.withTimeout = d
		case *verifierOptions:
			v.withTimeout = d
		}
	}
}

// WithProviderCA provides an optional CA cert for: IdTokenVerifier
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if v, ok := o.(*verifierOptions); ok {
			v.withProviderCA = cert
		}
	}
}

// WithSupportedSigningAlgs overrides the id_token signing algorithms accepted
// by an IdTokenVerifier
func WithSupportedSigningAlgs(algs ...Alg) Option {
	return func(o interface{}) {
		if v, ok := o.(*verifierOptions); ok {
			v.withSupportedSigningAlgs = algs
		}
	}
}

// WithScopes overrides the scopes requested by a Config.  "openid" is always
// requested.
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		if v, ok := o.(*configOptions); ok {
			v.withScopes = scopes
		}
	}
}

// WithAPIBaseURL overrides a Config's api base URL, which defaults to the
// origin + "/api"
func WithAPIBaseURL(u string) Option {
	return func(o interface{}) {
		if v, ok := o.(*configOptions); ok {
			v.withAPIBaseURL = u
		}
	}
}

// WithBackend provides the Backend used by a Flow.  The default is an
// APIClient for the config's api base URL.
func WithBackend(b Backend) Option {
	return func(o interface{}) {
		if v, ok := o.(*flowOptions); ok {
			v.withBackend = b
		}
	}
}

// WithIdTokenVerifier enables verification of the id_token returned by the
// exchange, including its nonce claim.
func WithIdTokenVerifier(v IdTokenVerifier) Option {
	return func(o interface{}) {
		if fo, ok := o.(*flowOptions); ok {
			fo.withIdTokenVerifier = v
		}
	}
}

// WithNow provides an optional clock for a Flow.  It's meant for tests.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if v, ok := o.(*flowOptions); ok && now != nil {
			v.withNow = now
		}
	}
}

// WithRandReader provides an optional source of randomness for the PKCE
// secrets of a Flow.  It's meant for tests.
func WithRandReader(r io.Reader) Option {
	return func(o interface{}) {
		if v, ok := o.(*flowOptions); ok {
			v.withRandReader = r
		}
	}
}
