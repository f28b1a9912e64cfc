// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"fmt"
	"net/http"

	"github.com/hashicorp/cap-onboarding/authflow"
)

// Login creates a handler which starts a new login attempt and redirects the
// user agent to the provider's authorization URL.
func Login(f *authflow.Flow, eFn ErrorResponseFunc) (http.HandlerFunc, error) {
	const op = "callback.Login"
	switch {
	case f == nil:
		return nil, fmt.Errorf("%s: flow is nil: %w", op, authflow.ErrInvalidParameter)
	case eFn == nil:
		return nil, fmt.Errorf("%s: error response func is nil: %w", op, authflow.ErrInvalidParameter)
	}
	return func(w http.ResponseWriter, req *http.Request) {
		authURL, err := f.InitiateLogin(req.Context())
		if err != nil {
			eFn(fmt.Errorf("%s: %w", op, err), w, req)
			return
		}
		http.Redirect(w, req, authURL, http.StatusFound)
	}, nil
}
