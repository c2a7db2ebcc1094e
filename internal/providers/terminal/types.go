package terminal

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/GriffinCanCode/termprov/internal/shared/id"
)

var (
	// ErrSessionNotFound is returned for unknown session IDs
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed is returned when writing to or resizing an exited session
	ErrSessionClosed = errors.New("session is closed")
)

// Session is a process running on a local PTY
type Session struct {
	id         id.TerminalID
	window     id.WindowID
	program    string
	args       []string
	workingDir string
	title      string
	remote     bool
	cols       int
	rows       int
	startedAt  time.Time

	// Process management
	cmd  *exec.Cmd
	ptmx *os.File

	// Output buffering
	outputBuf *Buffer

	// Lifecycle
	mu       sync.RWMutex
	closed   bool
	exitCode int
	done     chan struct{}
}

// ID returns the session identifier
func (s *Session) ID() id.TerminalID {
	return s.id
}

// Done is closed once the process has exited
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Write sends input to the process
func (s *Session) Write(p []byte) (int, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()

	if closed {
		return 0, ErrSessionClosed
	}
	return s.ptmx.Write(p)
}

// Info returns the public view of the session
func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := SessionInfo{
		ID:         s.id,
		Window:     s.window,
		Program:    s.program,
		Args:       append([]string(nil), s.args...),
		WorkingDir: s.workingDir,
		Title:      s.title,
		Remote:     s.remote,
		Cols:       s.cols,
		Rows:       s.rows,
		StartedAt:  s.startedAt,
		Active:     !s.closed,
	}
	if s.closed {
		code := s.exitCode
		info.ExitCode = &code
	}
	return info
}

// Buffer is a thread-safe circular buffer for terminal output
type Buffer struct {
	data []byte
	size int
	head int
	tail int
	mu   sync.RWMutex
}

// NewBuffer creates a new circular buffer. One slot is kept free to tell a
// full buffer from an empty one, so it holds at most size-1 bytes.
func NewBuffer(size int) *Buffer {
	if size < 2 {
		size = 2
	}
	return &Buffer{
		data: make([]byte, size),
		size: size,
	}
}

// Write appends p, overwriting the oldest bytes when full
func (b *Buffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range p {
		b.data[b.tail] = c
		b.tail = (b.tail + 1) % b.size

		// If buffer is full, move head forward
		if b.tail == b.head {
			b.head = (b.head + 1) % b.size
		}
	}

	return len(p), nil
}

// ReadAll drains the buffer
func (b *Buffer) ReadAll() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.head == b.tail {
		return []byte{}
	}

	var result []byte
	if b.tail > b.head {
		result = make([]byte, b.tail-b.head)
		copy(result, b.data[b.head:b.tail])
	} else {
		// Buffer wrapped around
		firstPart := b.data[b.head:]
		secondPart := b.data[:b.tail]
		result = make([]byte, len(firstPart)+len(secondPart))
		copy(result, firstPart)
		copy(result[len(firstPart):], secondPart)
	}

	b.head = b.tail
	return result
}

// SessionInfo is the public representation of a session
type SessionInfo struct {
	ID         id.TerminalID `json:"id"`
	Window     id.WindowID   `json:"window,omitempty"`
	Program    string        `json:"program"`
	Args       []string      `json:"args,omitempty"`
	WorkingDir string        `json:"working_dir,omitempty"`
	Title      string        `json:"title,omitempty"`
	Remote     bool          `json:"remote"`
	Cols       int           `json:"cols"`
	Rows       int           `json:"rows"`
	StartedAt  time.Time     `json:"started_at"`
	Active     bool          `json:"active"`
	ExitCode   *int          `json:"exit_code,omitempty"`
}
