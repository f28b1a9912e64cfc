// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// AttemptFileName is the file holding the transient scope
	AttemptFileName = "login_attempt.json"

	// SessionFileName is the file holding the durable scope
	SessionFileName = "session.json"
)

// FileStore is a Store backed by two json files in a directory, one per
// scope.  The files are only readable by the current user.  A FileStore lets
// a LoginAttempt survive a process restart between initiating a login and
// handling its callback.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// ensure that FileStore implements the Store interface
var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore in dir, creating the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	const op = "session.NewFileStore"
	if dir == "" {
		return nil, fmt.Errorf("%s: directory is empty: %w", op, ErrInvalidParameter)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%s: unable to create directory %s: %w", op, dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the store's directory
func (f *FileStore) Dir() string { return f.dir }

// Put implements TransientStore.Put
func (f *FileStore) Put(_ context.Context, a *LoginAttempt) error {
	const op = "FileStore.Put"
	if a == nil {
		return fmt.Errorf("%s: login attempt is nil: %w", op, ErrNilParameter)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.write(AttemptFileName, a); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// TakeAndClear implements TransientStore.TakeAndClear.  The entry is removed
// even when it can't be decoded.
func (f *FileStore) TakeAndClear(_ context.Context) (*LoginAttempt, error) {
	const op = "FileStore.TakeAndClear"
	f.mu.Lock()
	defer f.mu.Unlock()
	var a LoginAttempt
	found, readErr := f.read(AttemptFileName, &a)
	if err := f.remove(AttemptFileName); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	switch {
	case readErr != nil:
		return nil, fmt.Errorf("%s: %w", op, readErr)
	case !found:
		return nil, nil
	}
	return &a, nil
}

// ClearAttempt implements TransientStore.ClearAttempt
func (f *FileStore) ClearAttempt(_ context.Context) error {
	const op = "FileStore.ClearAttempt"
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.remove(AttemptFileName); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Save implements DurableStore.Save
func (f *FileStore) Save(_ context.Context, s *AuthSession) error {
	const op = "FileStore.Save"
	if s == nil {
		return fmt.Errorf("%s: auth session is nil: %w", op, ErrNilParameter)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.write(SessionFileName, s); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Load implements DurableStore.Load
func (f *FileStore) Load(_ context.Context) (*AuthSession, error) {
	const op = "FileStore.Load"
	f.mu.Lock()
	defer f.mu.Unlock()
	var s AuthSession
	found, err := f.read(SessionFileName, &s)
	switch {
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	case !found:
		return nil, nil
	}
	return &s, nil
}

// Clear implements DurableStore.Clear
func (f *FileStore) Clear(_ context.Context) error {
	const op = "FileStore.Clear"
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.remove(SessionFileName); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// write replaces the named file atomically via a rename
func (f *FileStore) write(name string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("unable to encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(f.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("unable to write %s: %w", name, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("unable to set permissions on %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(f.dir, name)); err != nil {
		return fmt.Errorf("unable to replace %s: %w", name, err)
	}
	return nil
}

func (f *FileStore) read(name string, v interface{}) (bool, error) {
	b, err := os.ReadFile(filepath.Join(f.dir, name))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("unable to read %s: %w", name, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("unable to decode %s: %w: %w", name, ErrCorruptEntry, err)
	}
	return true, nil
}

func (f *FileStore) remove(name string) error {
	err := os.Remove(filepath.Join(f.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("unable to remove %s: %w", name, err)
	}
	return nil
}
