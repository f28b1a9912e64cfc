// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"fmt"
	"net/http"

	"github.com/hashicorp/cap-onboarding/authflow"
)

// AuthCode creates a callback handler for the flow's redirect URI.  It reads
// the provider's response from the request (FormValue, so either the query or
// a posted form) and completes the login with Flow.HandleCallback.
//
// An error response from the provider is passed to eFn as an
// *authflow.AuthorizationError, and a response missing either the code or
// the state as authflow.ErrMissingCallbackParameter.  In both cases the pending
// login attempt is left untouched.
func AuthCode(f *authflow.Flow, sFn SuccessResponseFunc, eFn ErrorResponseFunc) (http.HandlerFunc, error) {
	const op = "callback.AuthCode"
	switch {
	case f == nil:
		return nil, fmt.Errorf("%s: flow is nil: %w", op, authflow.ErrInvalidParameter)
	case sFn == nil:
		return nil, fmt.Errorf("%s: success response func is nil: %w", op, authflow.ErrInvalidParameter)
	case eFn == nil:
		return nil, fmt.Errorf("%s: error response func is nil: %w", op, authflow.ErrInvalidParameter)
	}
	return func(w http.ResponseWriter, req *http.Request) {
		if e := req.FormValue("error"); e != "" {
			eFn(fmt.Errorf("%s: %w", op, &authflow.AuthorizationError{
				Code:        e,
				Description: req.FormValue("error_description"),
				Uri:         req.FormValue("error_uri"),
			}), w, req)
			return
		}
		code, state := req.FormValue("code"), req.FormValue("state")
		if code == "" || state == "" {
			eFn(fmt.Errorf("%s: %w", op, authflow.ErrMissingCallbackParameter), w, req)
			return
		}
		s, err := f.HandleCallback(req.Context(), code, state)
		if err != nil {
			eFn(fmt.Errorf("%s: unable to complete login: %w", op, err), w, req)
			return
		}
		sFn(s, w, req)
	}, nil
}
