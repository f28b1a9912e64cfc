// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package authflow

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/cap-onboarding/internal/httpclient"
)

// Alg represents asymmetric id_token signing algorithms
type Alg string

const (
	RS256 Alg = "RS256"
	RS384 Alg = "RS384"
	RS512 Alg = "RS512"
	ES256 Alg = "ES256"
	ES384 Alg = "ES384"
	ES512 Alg = "ES512"
	PS256 Alg = "PS256"
	PS384 Alg = "PS384"
	PS512 Alg = "PS512"
	EdDSA Alg = "EdDSA"
)

var supportedAlgorithms = map[Alg]bool{
	RS256: true,
	RS384: true,
	RS512: true,
	ES256: true,
	ES384: true,
	ES512: true,
	PS256: true,
	PS384: true,
	PS512: true,
	EdDSA: true,
}

// IdTokenVerifier verifies an id_token returned by the exchange.
type IdTokenVerifier interface {
	// VerifyIdToken verifies the raw id_token and checks its nonce claim
	// equals nonce.
	VerifyIdToken(ctx context.Context, rawIdToken, nonce string) error
}

// OIDCVerifier is an IdTokenVerifier which uses the provider's discovery
// document and signing keys.  It verifies the signature, issuer, audience,
// expiry and nonce.
type OIDCVerifier struct {
	client   *http.Client
	verifier *oidc.IDTokenVerifier
}

// ensure that OIDCVerifier implements the IdTokenVerifier interface
var _ IdTokenVerifier = (*OIDCVerifier)(nil)

// NewOIDCVerifier discovers the issuer's configuration, which makes an http
// request to the issuer.
//
// Supported options: WithHTTPClient, WithProviderCA, WithTimeout,
// WithSupportedSigningAlgs
func NewOIDCVerifier(ctx context.Context, issuer, clientId string, opt ...Option) (*OIDCVerifier, error) {
	const op = "authflow.NewOIDCVerifier"
	if issuer == "" {
		return nil, fmt.Errorf("%s: issuer is empty: %w", op, ErrInvalidParameter)
	}
	if clientId == "" {
		return nil, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter)
	}
	opts := getVerifierOpts(opt...)
	algs := make([]string, 0, len(opts.withSupportedSigningAlgs))
	for _, a := range opts.withSupportedSigningAlgs {
		if !supportedAlgorithms[a] {
			return nil, fmt.Errorf("%s: unsupported algorithm %s: %w", op, a, ErrInvalidParameter)
		}
		algs = append(algs, string(a))
	}
	client := opts.withHTTPClient
	if client == nil {
		var err error
		if client, err = httpclient.New(opts.withProviderCA, opts.withTimeout); err != nil {
			return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
		}
	}
	p, err := oidc.NewProvider(oidc.ClientContext(ctx, client), issuer) // makes http req to issuer for discovery
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create provider: %w", op, err)
	}
	return &OIDCVerifier{
		client: client,
		verifier: p.Verifier(&oidc.Config{
			ClientID:             clientId,
			SupportedSigningAlgs: algs,
		}),
	}, nil
}

// VerifyIdToken implements IdTokenVerifier.VerifyIdToken
func (v *OIDCVerifier) VerifyIdToken(ctx context.Context, rawIdToken, nonce string) error {
	const op = "authflow.(OIDCVerifier).VerifyIdToken"
	if rawIdToken == "" {
		return fmt.Errorf("%s: id_token is empty: %w", op, ErrIdTokenVerification)
	}
	if nonce == "" {
		return fmt.Errorf("%s: nonce is empty: %w", op, ErrInvalidParameter)
	}
	t, err := v.verifier.Verify(oidc.ClientContext(ctx, v.client), rawIdToken)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrIdTokenVerification, err)
	}
	if t.Nonce != nonce {
		return fmt.Errorf("%s: %w", op, ErrInvalidNonce)
	}
	return nil
}

type verifierOptions struct {
	withHTTPClient           *http.Client
	withProviderCA           string
	withTimeout              time.Duration
	withSupportedSigningAlgs []Alg
}

func verifierDefaults() verifierOptions {
	return verifierOptions{
		withTimeout:              httpclient.DefaultTimeout,
		withSupportedSigningAlgs: []Alg{RS256, ES256},
	}
}

func getVerifierOpts(opt ...Option) verifierOptions {
	opts := verifierDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
