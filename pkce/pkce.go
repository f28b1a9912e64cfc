// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package pkce

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

// ChallengeMethod represents PKCE code challenge methods as defined by RFC
// 7636.
type ChallengeMethod string

const (
	// S256 is the only challenge method supported.
	S256 ChallengeMethod = "S256"
)

const (
	// VerifierEntropy is the number of random bytes in a code verifier
	VerifierEntropy = 32

	// StateEntropy is the number of random bytes in an oauth state
	StateEntropy = 16

	// NonceEntropy is the number of random bytes in an oidc nonce
	NonceEntropy = 16
)

// NewRandomToken returns byteLength cryptographically random bytes encoded
// with the URL safe base64 alphabet and no padding, so the result never
// contains '+', '/' or '='.
//
// Supported options: WithRandReader
func NewRandomToken(byteLength int, opt ...Option) (string, error) {
	const op = "pkce.NewRandomToken"
	if byteLength <= 0 {
		return "", fmt.Errorf("%s: byte length %d is not greater than zero: %w", op, byteLength, ErrInvalidParameter)
	}
	opts := getTokenOpts(opt...)
	buf := make([]byte, byteLength)
	if _, err := io.ReadFull(opts.withRandReader, buf); err != nil {
		return "", fmt.Errorf("%s: unable to read random bytes: %w: %w", op, ErrEntropySourceUnavailable, err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CreateCodeChallenge derives the code challenge for the verifier using the
// method.  For S256 it's the SHA-256 digest of the verifier's UTF-8 bytes,
// encoded with the URL safe base64 alphabet and no padding.
func CreateCodeChallenge(method ChallengeMethod, verifier string) (string, error) {
	const op = "pkce.CreateCodeChallenge"
	if method != S256 {
		return "", fmt.Errorf("%s: %s: %w", op, method, ErrUnsupportedChallengeMethod)
	}
	if verifier == "" {
		return "", fmt.Errorf("%s: verifier is empty: %w", op, ErrInvalidParameter)
	}
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

// S256Verifier is a code verifier and its S256 challenge.
type S256Verifier struct {
	verifier  string
	challenge string
}

// NewCodeVerifier creates a new code verifier with VerifierEntropy random bytes
// and computes its challenge.
//
// Supported options: WithRandReader
func NewCodeVerifier(opt ...Option) (*S256Verifier, error) {
	const op = "pkce.NewCodeVerifier"
	v, err := NewRandomToken(VerifierEntropy, opt...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c, err := CreateCodeChallenge(S256, v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &S256Verifier{
		verifier:  v,
		challenge: c,
	}, nil
}

func (v *S256Verifier) Verifier() string        { return v.verifier }  // Verifier returns the code verifier
func (v *S256Verifier) Challenge() string       { return v.challenge } // Challenge returns the code challenge
func (v *S256Verifier) Method() ChallengeMethod { return S256 }        // Method returns the code challenge method
