// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"errors"
	"net/http"

	"github.com/hashicorp/cap-onboarding/authflow"
	"github.com/hashicorp/cap-onboarding/session"
)

// SuccessResponseFunc is used by AuthCode to create a http response when the
// callback is successful.
//
// The session is the AuthSession which has already been stored.  The function
// should use the http.ResponseWriter to send back whatever content (headers,
// html, JSON, redirect, etc) it wishes to the client that originated the flow.
type SuccessResponseFunc func(s *session.AuthSession, w http.ResponseWriter, req *http.Request)

// ErrorResponseFunc is used by AuthCode and Login to create a http response
// when the request fails.  ErrorMessage gives a message suitable for showing
// to the user.
type ErrorResponseFunc func(e error, w http.ResponseWriter, req *http.Request)

// Messages returned by ErrorMessage
const (
	MsgAuthorizationError  = "Authorization error"
	MsgMissingParameters   = "Missing authorization code or state"
	MsgInvalidState        = "Invalid state parameter"
	MsgMissingVerifier     = "Code verifier not found"
	MsgAuthenticationError = "Authentication failed"
)

// ErrorMessage returns the user facing message for an error returned by a
// Flow or raised by AuthCode.
func ErrorMessage(err error) string {
	var authErr *authflow.AuthorizationError
	var exchangeErr *authflow.TokenExchangeError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &authErr):
		return MsgAuthorizationError + ": " + authErr.Code
	case errors.Is(err, authflow.ErrMissingCallbackParameter):
		return MsgMissingParameters
	case errors.Is(err, authflow.ErrCsrfMismatch):
		return MsgInvalidState
	case errors.Is(err, authflow.ErrMissingVerifier):
		return MsgMissingVerifier
	case errors.As(err, &exchangeErr):
		return exchangeErr.Message
	case errors.Is(err, authflow.ErrTokenExchangeFailed):
		return authflow.DefaultTokenExchangeMessage
	default:
		return MsgAuthenticationError
	}
}
