// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import "context"

// TransientStore holds at most one LoginAttempt.
type TransientStore interface {
	// Put stores the attempt, overwriting any prior attempt.
	Put(ctx context.Context, a *LoginAttempt) error

	// TakeAndClear returns the current attempt and deletes it.  It returns
	// nil and no error when there isn't one.
	TakeAndClear(ctx context.Context) (*LoginAttempt, error)

	// ClearAttempt deletes any current attempt without returning it.
	ClearAttempt(ctx context.Context) error
}

// DurableStore holds at most one AuthSession.
type DurableStore interface {
	// Save stores the session, overwriting any prior session.
	Save(ctx context.Context, s *AuthSession) error

	// Load returns the current session, or nil and no error when there isn't
	// one.  It doesn't check expiry.
	Load(ctx context.Context) (*AuthSession, error)

	// Clear deletes the current session.  It's not an error if there isn't
	// one.
	Clear(ctx context.Context) error
}

// Store provides both scopes.
type Store interface {
	TransientStore
	DurableStore
}
