// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hashicorp/cap-onboarding/authflow"
	"github.com/hashicorp/cap-onboarding/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthCode(t *testing.T) {
	t.Parallel()
	f := testFlow(t, session.NewMemoryStore(), &testBackend{})
	tests := []struct {
		name    string
		f       *authflow.Flow
		sFn     SuccessResponseFunc
		eFn     ErrorResponseFunc
		wantErr bool
	}{
		{"valid", f, testSuccessFn, testFailFn, false},
		{"nil-flow", nil, testSuccessFn, testFailFn, true},
		{"nil-sFn", f, nil, testFailFn, true},
		{"nil-eFn", f, testSuccessFn, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := AuthCode(tt.f, tt.sFn, tt.eFn)
			if tt.wantErr {
				require.Error(err)
				assert.True(errors.Is(err, authflow.ErrInvalidParameter))
				assert.Nil(got)
				return
			}
			require.NoError(err)
			assert.NotNil(got)
		})
	}
}

func Test_AuthCodeResponses(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name           string
		query          func(state string) url.Values
		exchangeErr    error
		wantStatusCode int
		wantBody       string
		wantExchange   bool
		wantSession    bool
		wantPending    bool
	}{
		{
			name:           "valid",
			query:          func(state string) url.Values { return url.Values{"code": {"C"}, "state": {state}} },
			wantStatusCode: http.StatusOK,
			wantBody:       "login successful",
			wantExchange:   true,
			wantSession:    true,
		},
		{
			name: "provider-error",
			query: func(state string) url.Values {
				return url.Values{"error": {"access_denied"}, "error_description": {"user cancelled"}, "state": {state}}
			},
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       "Authorization error: access_denied",
			wantPending:    true,
		},
		{
			name:           "missing-code",
			query:          func(state string) url.Values { return url.Values{"state": {state}} },
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       "Missing authorization code or state",
			wantPending:    true,
		},
		{
			name:           "missing-state",
			query:          func(string) url.Values { return url.Values{"code": {"C"}} },
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       "Missing authorization code or state",
			wantPending:    true,
		},
		{
			name:           "forged-state",
			query:          func(string) url.Values { return url.Values{"code": {"C"}, "state": {"forged"}} },
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       "Invalid state parameter",
		},
		{
			name:           "exchange-failed",
			query:          func(state string) url.Values { return url.Values{"code": {"C"}, "state": {state}} },
			exchangeErr:    &authflow.TokenExchangeError{Status: 400, Code: "invalid_grant", Message: "Code expired"},
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       "Code expired",
			wantExchange:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			store := session.NewMemoryStore()
			backend := &testBackend{err: tt.exchangeErr}
			f := testFlow(t, store, backend)

			authURL, err := f.InitiateLogin(ctx)
			require.NoError(err)
			u, err := url.Parse(authURL)
			require.NoError(err)
			state := u.Query().Get("state")

			h, err := AuthCode(f, testSuccessFn, testFailFn)
			require.NoError(err)
			srv := httptest.NewServer(h)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "?" + tt.query(state).Encode())
			require.NoError(err)
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			require.NoError(err)
			assert.Equal(tt.wantStatusCode, resp.StatusCode)
			assert.Equal(tt.wantBody, string(body))
			assert.Equal(tt.wantExchange, len(backend.exchanges()) == 1)

			s, err := store.Load(ctx)
			require.NoError(err)
			assert.Equal(tt.wantSession, s != nil)
			pending, err := store.TakeAndClear(ctx)
			require.NoError(err)
			assert.Equal(tt.wantPending, pending != nil)
		})
	}

	t.Run("form-post", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		store := session.NewMemoryStore()
		f := testFlow(t, store, &testBackend{})
		authURL, err := f.InitiateLogin(ctx)
		require.NoError(err)
		u, err := url.Parse(authURL)
		require.NoError(err)

		h, err := AuthCode(f, testSuccessFn, testFailFn)
		require.NoError(err)
		form := url.Values{"code": {"C"}, "state": {u.Query().Get("state")}}
		req := httptest.NewRequest(http.MethodPost, "/auth/callback", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h(rec, req)
		assert.Equal(http.StatusOK, rec.Code)
	})
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"authorization", &authflow.AuthorizationError{Code: "login_required"}, "Authorization error: login_required"},
		{"missing", authflow.ErrMissingCallbackParameter, MsgMissingParameters},
		{"csrf", authflow.ErrCsrfMismatch, MsgInvalidState},
		{"verifier", authflow.ErrMissingVerifier, MsgMissingVerifier},
		{"exchange", &authflow.TokenExchangeError{Message: "Code expired"}, "Code expired"},
		{"exchange-transport", authflow.ErrTokenExchangeFailed, authflow.DefaultTokenExchangeMessage},
		{"other", errors.New("boom"), MsgAuthenticationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorMessage(tt.err))
		})
	}
}
