package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/termprov/internal/settings"
	"github.com/GriffinCanCode/termprov/internal/shared/id"
	core "github.com/GriffinCanCode/termprov/internal/terminal"
)

const (
	defaultCols       = 80
	defaultRows       = 24
	defaultBufferSize = 1024 * 1024
)

// Manager runs launch plans on local PTYs
type Manager struct {
	sessions sync.Map // map[id.TerminalID]*Session
	logger   *zap.Logger
}

// NewManager creates a new session manager
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{logger: logger}
}

// Launch starts the process described by plan
func (m *Manager) Launch(ctx context.Context, plan *core.LaunchPlan, window id.WindowID) (core.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	program, args := command(plan.Shell)

	workingDir := plan.WorkingDirectory
	if workingDir == "" {
		workingDir = os.Getenv("HOME")
		if workingDir == "" {
			workingDir = os.TempDir()
		}
	}

	cmd := exec.Command(program, args...)
	cmd.Dir = workingDir
	cmd.Env = environ(os.Environ(), plan.Env)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: defaultRows,
		Cols: defaultCols,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY: %w", err)
	}

	session := &Session{
		id:         id.NewTerminalID(),
		window:     window,
		program:    program,
		args:       args,
		workingDir: plan.WorkingDirectory,
		title:      plan.Shell.TitleOverride,
		remote:     plan.Remote,
		cols:       defaultCols,
		rows:       defaultRows,
		startedAt:  time.Now(),
		cmd:        cmd,
		ptmx:       ptmx,
		outputBuf:  NewBuffer(defaultBufferSize),
		done:       make(chan struct{}),
	}

	m.sessions.Store(session.id, session)

	go m.readOutput(session)
	go m.monitorProcess(session)

	m.logger.Info("Started terminal",
		zap.String("id", session.id.String()),
		zap.String("program", program),
		zap.String("cwd", workingDir),
		zap.Bool("remote", plan.Remote),
	)
	return session, nil
}

// command picks the executable for a shell setting
func command(shell settings.Shell) (string, []string) {
	switch shell.Kind {
	case settings.ShellProgram:
		return shell.Program, nil
	case settings.ShellWithArguments:
		return shell.Program, append([]string(nil), shell.Args...)
	default:
		if s := os.Getenv("SHELL"); s != "" {
			return s, nil
		}
		return "/bin/sh", nil
	}
}

// environ overlays env on base. TERM defaults to xterm-256color.
func environ(base []string, env map[string]string) []string {
	merged := make(map[string]string, len(base)+len(env)+1)
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			merged[k] = v
		}
	}
	if _, ok := merged["TERM"]; !ok {
		merged["TERM"] = "xterm-256color"
	}
	for k, v := range env {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+merged[k])
	}
	return out
}

// readOutput continuously reads from PTY and buffers output
func (m *Manager) readOutput(session *Session) {
	buf := make([]byte, 4096)
	for {
		n, err := session.ptmx.Read(buf)
		if n > 0 {
			session.outputBuf.Write(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				m.logger.Debug("PTY read ended", zap.String("id", session.id.String()), zap.Error(err))
			}
			return
		}
	}
}

// monitorProcess waits for the process to exit and closes the session
func (m *Manager) monitorProcess(session *Session) {
	err := session.cmd.Wait()

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	session.mu.Lock()
	session.closed = true
	session.exitCode = exitCode
	session.mu.Unlock()

	// Give the reader a moment to drain what the process wrote last
	time.Sleep(50 * time.Millisecond)
	session.ptmx.Close()
	close(session.done)

	m.logger.Info("Terminal exited",
		zap.String("id", session.id.String()),
		zap.Int("exit_code", exitCode),
	)
}

func (m *Manager) session(sessionID id.TerminalID) (*Session, error) {
	value, ok := m.sessions.Load(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return value.(*Session), nil
}

// Write sends input to a session
func (m *Manager) Write(sessionID id.TerminalID, input []byte) error {
	session, err := m.session(sessionID)
	if err != nil {
		return err
	}
	if _, err := session.Write(input); err != nil {
		return fmt.Errorf("failed to write to %s: %w", sessionID, err)
	}
	return nil
}

// Read drains buffered output from a session
func (m *Manager) Read(sessionID id.TerminalID) ([]byte, error) {
	session, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}
	return session.outputBuf.ReadAll(), nil
}

// Resize changes terminal dimensions
func (m *Manager) Resize(sessionID id.TerminalID, cols, rows int) error {
	if cols <= 0 || rows <= 0 || cols > 0xffff || rows > 0xffff {
		return fmt.Errorf("invalid terminal size %dx%d", cols, rows)
	}

	session, err := m.session(sessionID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.closed {
		return fmt.Errorf("%w: %s", ErrSessionClosed, sessionID)
	}

	session.cols = cols
	session.rows = rows

	return pty.Setsize(session.ptmx, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
}

// Kill terminates a session and forgets it
func (m *Manager) Kill(sessionID id.TerminalID) error {
	session, err := m.session(sessionID)
	if err != nil {
		return err
	}
	m.sessions.Delete(sessionID)

	session.mu.RLock()
	closed := session.closed
	session.mu.RUnlock()

	if !closed && session.cmd.Process != nil {
		if err := session.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("failed to kill %s: %w", sessionID, err)
		}
	}
	return nil
}

// ListSessions returns every known session
func (m *Manager) ListSessions() []SessionInfo {
	var sessions []SessionInfo

	m.sessions.Range(func(_, value interface{}) bool {
		sessions = append(sessions, value.(*Session).Info())
		return true
	})

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})
	return sessions
}

// GetSession retrieves session info
func (m *Manager) GetSession(sessionID id.TerminalID) (*SessionInfo, error) {
	session, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}
	info := session.Info()
	return &info, nil
}

// Close kills every session
func (m *Manager) Close() {
	m.sessions.Range(func(key, _ interface{}) bool {
		_ = m.Kill(key.(id.TerminalID))
		return true
	})
}
