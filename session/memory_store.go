// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in memory Store.  It's concurrently safe and hands out
// copies, so callers can't mutate what's stored.
type MemoryStore struct {
	mu      sync.Mutex
	attempt *LoginAttempt
	session *AuthSession
}

// ensure that MemoryStore implements the Store interface
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Put implements TransientStore.Put
func (m *MemoryStore) Put(_ context.Context, a *LoginAttempt) error {
	const op = "MemoryStore.Put"
	if a == nil {
		return fmt.Errorf("%s: login attempt is nil: %w", op, ErrNilParameter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempt = a.Copy()
	return nil
}

// TakeAndClear implements TransientStore.TakeAndClear
func (m *MemoryStore) TakeAndClear(_ context.Context) (*LoginAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.attempt
	m.attempt = nil
	return a, nil
}

// ClearAttempt implements TransientStore.ClearAttempt
func (m *MemoryStore) ClearAttempt(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempt = nil
	return nil
}

// Save implements DurableStore.Save
func (m *MemoryStore) Save(_ context.Context, s *AuthSession) error {
	const op = "MemoryStore.Save"
	if s == nil {
		return fmt.Errorf("%s: auth session is nil: %w", op, ErrNilParameter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s.Copy()
	return nil
}

// Load implements DurableStore.Load
func (m *MemoryStore) Load(_ context.Context) (*AuthSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Copy(), nil
}

// Clear implements DurableStore.Clear
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}
