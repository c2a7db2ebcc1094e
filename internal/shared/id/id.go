// Package id generates prefixed, sortable identifiers.
//
// Every identifier is "<prefix>_<ULID>". Terminal handles, provisioning
// requests and host windows each carry their own prefix so log lines can be
// read without a lookup table.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TerminalID identifies a provisioned terminal handle
type TerminalID string

// RequestID identifies a provisioning request or HTTP request
type RequestID string

// WindowID identifies the host window a terminal is attached to
type WindowID string

const (
	TerminalPrefix = "term"
	RequestPrefix  = "req"
	WindowPrefix   = "win"
)

// Generator produces ULIDs from a guarded entropy source
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(rand.Reader)
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Tests use it for reproducible identifiers.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a "<prefix>_<ULID>" string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewTerminalID generates a terminal handle ID
func NewTerminalID() TerminalID {
	return TerminalID(Default().GenerateWithPrefix(TerminalPrefix))
}

// NewRequestID generates a request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewWindowID generates a window ID
func NewWindowID() WindowID {
	return WindowID(Default().GenerateWithPrefix(WindowPrefix))
}

func (id TerminalID) String() string { return string(id) }
func (id RequestID) String() string  { return string(id) }
func (id WindowID) String() string   { return string(id) }

// Split separates a prefixed identifier into prefix and ULID. ok is false
// when s is not "<prefix>_<valid ULID>".
func Split(s string) (prefix string, value ulid.ULID, ok bool) {
	prefix, raw, found := strings.Cut(s, "_")
	if !found || prefix == "" {
		return "", ulid.ULID{}, false
	}
	value, err := ulid.Parse(raw)
	if err != nil {
		return "", ulid.ULID{}, false
	}
	return prefix, value, true
}

// IsTerminalID reports whether s is a well-formed terminal handle ID
func IsTerminalID(s string) bool {
	prefix, _, ok := Split(s)
	return ok && prefix == TerminalPrefix
}

// Timestamp extracts the creation time of a prefixed identifier
func Timestamp(s string) (time.Time, error) {
	_, value, ok := Split(s)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid identifier: %q", s)
	}
	return ulid.Time(value.Time()), nil
}
