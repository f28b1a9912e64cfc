// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package proxy

import (
	"net/http"
	"time"

	"github.com/hashicorp/cap-onboarding/internal/httpclient"
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

type configOptions struct {
	withClientSecret         ClientSecret
	withClientAssertionKey   PrivateKeyPEM
	withClientAssertionKeyId string
	withProviderCA           string
	withTimeout              time.Duration
}

func configDefaults() configOptions {
	return configOptions{
		withTimeout: httpclient.DefaultTimeout,
	}
}

func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

type proxyOptions struct {
	withLogger     hclog.Logger
	withHTTPClient *http.Client
}

func proxyDefaults() proxyOptions {
	return proxyOptions{
		withLogger: hclog.NewNullLogger(),
	}
}

func getProxyOpts(opt ...Option) proxyOptions {
	opts := proxyDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithClientSecret provides an optional confidential client secret
func WithClientSecret(secret ClientSecret) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withClientSecret = secret
		}
	}
}

// WithClientAssertionKey authenticates the client with JWTs signed by the
// PEM encoded RSA or P-256 private key, instead of a client secret.  The keyId
// is optional.
func WithClientAssertionKey(key PrivateKeyPEM, keyId string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withClientAssertionKey = key
			o.withClientAssertionKeyId = keyId
		}
	}
}

// WithProviderCA provides an optional CA cert for requests to the provider
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithTimeout provides an optional timeout for each provider request
func WithTimeout(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withTimeout = d
		}
	}
}

// WithLogger provides an optional logger
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*proxyOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithHTTPClient provides an optional http client, which replaces the one
// built from the config's ProviderCA and Timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if o, ok := o.(*proxyOptions); ok {
			o.withHTTPClient = c
		}
	}
}
