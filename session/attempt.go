// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

// LoginAttempt is the transient set of secrets for one initiated login.  It
// only needs to survive the redirect round trip to the identity provider.
type LoginAttempt struct {
	// CodeVerifier is the PKCE code verifier
	CodeVerifier string `json:"code_verifier"`

	// CodeChallenge is derived from the CodeVerifier and is only kept so the
	// pair can't drift apart
	CodeChallenge string `json:"code_challenge"`

	// State is the single use CSRF token echoed back by the provider
	State string `json:"state"`

	// Nonce is sent to the provider and may be checked against the id_token
	Nonce string `json:"nonce"`
}

// Copy returns a deep copy of the attempt
func (a *LoginAttempt) Copy() *LoginAttempt {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}
