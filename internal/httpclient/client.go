// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package httpclient

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

// DefaultTimeout bounds every outbound request made with a client from New
const DefaultTimeout = 10 * time.Second

var ErrInvalidCertificatePem = errors.New("invalid certificate PEM")

// New creates a new http client with a pooled transport which will use the
// optional CA certificate PEM if provided, otherwise it will use the
// installed system CA chain.  A timeout <= 0 means DefaultTimeout.
func New(caPEM string, timeout time.Duration) (*http.Client, error) {
	const op = "httpclient.New"
	tr := cleanhttp.DefaultPooledTransport()

	if caPEM != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(caPEM)); !ok {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCertificatePem)
		}
		tr.TLSClientConfig = &tls.Config{
			RootCAs:    certPool,
			MinVersion: tls.VersionTLS12,
		}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}
