// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package proxy

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter           = errors.New("invalid parameter")
	ErrNilParameter               = errors.New("nil parameter")
	ErrMissingParameter           = errors.New("missing required parameters")
	ErrMissingAuthorizationHeader = errors.New("missing or invalid authorization header")
	ErrIdPRequestFailed           = errors.New("identity provider request failed")
	ErrIdPUnavailable             = errors.New("identity provider unavailable")
	ErrInvalidIdPResponse         = errors.New("invalid identity provider response")
)

// IdPError is a non-success response from the identity provider.
type IdPError struct {
	// Status is the provider's http status code
	Status int

	// Code and Description are the oauth2 "error" and "error_description"
	// fields of a failed token exchange, when the body was json
	Code        string
	Description string

	// Body is the raw body truncated to MaxErrorBodyLen characters.  It's
	// always set for user-info failures.
	Body string
}

// Error implements the error interface
func (e *IdPError) Error() string {
	switch {
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("%s: status %d: %s: %s", ErrIdPRequestFailed, e.Status, e.Code, e.Description)
	case e.Code != "":
		return fmt.Sprintf("%s: status %d: %s", ErrIdPRequestFailed, e.Status, e.Code)
	default:
		return fmt.Sprintf("%s: status %d", ErrIdPRequestFailed, e.Status)
	}
}

// Is reports ErrIdPRequestFailed as a match
func (e *IdPError) Is(target error) bool {
	return target == ErrIdPRequestFailed
}
