// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"fmt"
	"time"
)

// AuthSession is the durable result of a successful login.
type AuthSession struct {
	AccessToken  string `json:"access_token"`
	IdToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresIn is the lifetime in seconds declared by the provider
	ExpiresIn int64 `json:"expires_in"`

	// ExpiresAt is the creation time plus ExpiresIn, in epoch milliseconds
	ExpiresAt int64 `json:"expires_at"`
}

// NewAuthSession creates an AuthSession whose expiry is computed from the
// createdAt time.
func NewAuthSession(accessToken, idToken, refreshToken string, expiresIn int64, createdAt time.Time) (*AuthSession, error) {
	const op = "session.NewAuthSession"
	if accessToken == "" {
		return nil, fmt.Errorf("%s: access token is empty: %w", op, ErrInvalidParameter)
	}
	if expiresIn < 0 {
		return nil, fmt.Errorf("%s: expires in %d is negative: %w", op, expiresIn, ErrInvalidParameter)
	}
	return &AuthSession{
		AccessToken:  accessToken,
		IdToken:      idToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		ExpiresAt:    createdAt.UnixMilli() + expiresIn*1000,
	}, nil
}

// Expiry returns ExpiresAt as a time.Time
func (s *AuthSession) Expiry() time.Time {
	return time.UnixMilli(s.ExpiresAt)
}

// IsExpired reports whether now is past the session's expiry.
func (s *AuthSession) IsExpired(now time.Time) bool {
	return now.UnixMilli() > s.ExpiresAt
}

// Copy returns a deep copy of the session
func (s *AuthSession) Copy() *AuthSession {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// String redacts the tokens
func (s *AuthSession) String() string {
	return fmt.Sprintf("AuthSession{expires_at: %s}", s.Expiry().UTC().Format(time.RFC3339))
}
