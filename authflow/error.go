// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package authflow

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter         = errors.New("invalid parameter")
	ErrNilParameter             = errors.New("nil parameter")
	ErrCsrfMismatch             = errors.New("invalid state parameter")
	ErrMissingVerifier          = errors.New("code verifier not found")
	ErrTokenExchangeFailed      = errors.New("token exchange failed")
	ErrUserInfoUnavailable      = errors.New("user info unavailable")
	ErrAuthorizationDenied      = errors.New("authorization error")
	ErrMissingCallbackParameter = errors.New("missing authorization code or state")
	ErrInvalidNonce             = errors.New("invalid id_token nonce")
	ErrIdTokenVerification      = errors.New("id_token verification failed")
)

// DefaultTokenExchangeMessage is the user facing message when the backend
// gives no better explanation
const DefaultTokenExchangeMessage = "Failed to exchange code for tokens"

// TokenExchangeError is a failed authorization code exchange.
type TokenExchangeError struct {
	// Status is the provider's status when the backend reported it, otherwise
	// the backend's own status
	Status int

	// Code and Description are the provider's "error" and
	// "error_description", when it reported them
	Code        string
	Description string

	// Body is the provider's raw error body, truncated by the backend
	Body string

	// Message is suitable for showing to the user
	Message string
}

// Error implements the error interface
func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", ErrTokenExchangeFailed, e.Status, e.Message)
}

// Is reports ErrTokenExchangeFailed as a match
func (e *TokenExchangeError) Is(target error) bool {
	return target == ErrTokenExchangeFailed
}

// AuthorizationError is an error response the provider redirected back to the
// callback with.  See:
// https://openid.net/specs/openid-connect-core-1_0.html#AuthError
type AuthorizationError struct {
	Code        string
	Description string
	Uri         string
}

// Error implements the error interface
func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAuthorizationDenied, e.Code)
}

// Is reports ErrAuthorizationDenied as a match
func (e *AuthorizationError) Is(target error) bool {
	return target == ErrAuthorizationDenied
}
