// Package toolchain tracks the language toolchains a user has selected for
// each workspace member.
package toolchain

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
)

// Python is the language name venv detection asks for
const Python = "Python"

// ErrUnavailable is returned when the toolchain backend cannot answer
var ErrUnavailable = errors.New("toolchain service unavailable")

// Toolchain is a selected interpreter or compiler
type Toolchain struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	// Path is the executable, e.g. /home/u/proj/.venv/bin/python
	Path string `json:"path"`
}

type key struct {
	member   string
	language string
}

// Store is an in-memory toolchain selection table
type Store struct {
	mu     sync.RWMutex
	active map[key]Toolchain
	closed bool
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{active: make(map[key]Toolchain)}
}

// Activate selects a toolchain for a member
func (s *Store) Activate(memberID string, tc Toolchain) {
	tc.Path = filepath.Clean(tc.Path)
	s.mu.Lock()
	s.active[key{memberID, tc.Language}] = tc
	s.mu.Unlock()
}

// Deactivate clears a selection
func (s *Store) Deactivate(memberID, language string) {
	s.mu.Lock()
	delete(s.active, key{memberID, language})
	s.mu.Unlock()
}

// Active returns the selected toolchain, or nil when none is selected
func (s *Store) Active(ctx context.Context, memberID, language string) (*Toolchain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrUnavailable
	}
	tc, ok := s.active[key{memberID, language}]
	if !ok {
		return nil, nil
	}
	return &tc, nil
}

// Close makes later lookups fail with ErrUnavailable
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
