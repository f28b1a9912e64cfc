// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/hashicorp/cap-onboarding/authflow"
	"github.com/hashicorp/cap-onboarding/session"
	"github.com/stretchr/testify/require"
)

type testBackend struct {
	mu        sync.Mutex
	err       error
	exchanged []string
}

func (b *testBackend) ExchangeToken(_ context.Context, code, _, _ string) (*authflow.TokenResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exchanged = append(b.exchanged, code)
	if b.err != nil {
		return nil, b.err
	}
	return &authflow.TokenResponse{AccessToken: "AT", IdToken: "IDT", ExpiresIn: 3600}, nil
}

func (b *testBackend) UserInfo(context.Context, string) (*authflow.UserInfo, error) {
	return &authflow.UserInfo{Sub: "alice"}, nil
}

func (b *testBackend) exchanges() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.exchanged...)
}

func testFlow(t *testing.T, store session.Store, b authflow.Backend) *authflow.Flow {
	t.Helper()
	c, err := authflow.NewConfig("mindx-onboarding", "http://localhost:5173", "https://id-dev.mindx.edu.vn/auth")
	require.NoError(t, err)
	f, err := authflow.NewFlow(c, store, authflow.WithBackend(b))
	require.NoError(t, err)
	return f
}

func testSuccessFn(s *session.AuthSession, w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "login successful")
}

func testFailFn(e error, w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = fmt.Fprint(w, ErrorMessage(e))
}
