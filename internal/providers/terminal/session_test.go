package terminal

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/termprov/internal/settings"
	"github.com/GriffinCanCode/termprov/internal/shared/id"
	core "github.com/GriffinCanCode/termprov/internal/terminal"
)

func skipWithoutPTY(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("PTY sessions need a POSIX host")
	}
}

func shPlan(dir string, env map[string]string, script string) *core.LaunchPlan {
	return &core.LaunchPlan{
		WorkingDirectory: dir,
		Shell: settings.Shell{
			Kind:    settings.ShellWithArguments,
			Program: "/bin/sh",
			Args:    []string{"-c", script},
		},
		Env: env,
	}
}

// collect drains output until it contains want or the deadline passes
func collect(t *testing.T, m *Manager, sessionID id.TerminalID, want string) string {
	t.Helper()
	var out strings.Builder
	assert.Eventually(t, func() bool {
		chunk, err := m.Read(sessionID)
		if err != nil {
			return false
		}
		out.Write(chunk)
		return strings.Contains(out.String(), want)
	}, 5*time.Second, 10*time.Millisecond)
	return out.String()
}

func TestLaunchRunsPlan(t *testing.T) {
	skipWithoutPTY(t)
	m := NewManager(nil)
	defer m.Close()

	dir := t.TempDir()
	session, err := m.Launch(context.Background(), shPlan(dir, map[string]string{"GREETING": "hello there"}, `printf '%s|%s\n' "$GREETING" "$(pwd)"`), id.NewWindowID())
	require.NoError(t, err)

	out := collect(t, m, session.ID(), "hello there|")
	assert.Contains(t, out, "hello there|")

	select {
	case <-session.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not exit")
	}

	info, err := m.GetSession(session.ID())
	require.NoError(t, err)
	assert.False(t, info.Active)
	require.NotNil(t, info.ExitCode)
	assert.Equal(t, 0, *info.ExitCode)
	assert.Equal(t, "/bin/sh", info.Program)
}

func TestSessionWriteAndResize(t *testing.T) {
	skipWithoutPTY(t)
	m := NewManager(nil)
	defer m.Close()

	session, err := m.Launch(context.Background(), shPlan("", nil, "read line; echo got:$line"), id.NewWindowID())
	require.NoError(t, err)

	require.NoError(t, m.Resize(session.ID(), 120, 40))
	info, err := m.GetSession(session.ID())
	require.NoError(t, err)
	assert.Equal(t, 120, info.Cols)
	assert.Equal(t, 40, info.Rows)

	require.NoError(t, m.Write(session.ID(), []byte("ping\n")))
	collect(t, m, session.ID(), "got:ping")

	<-session.Done()
	assert.ErrorIs(t, m.Write(session.ID(), []byte("late\n")), ErrSessionClosed)
	assert.ErrorIs(t, m.Resize(session.ID(), 80, 24), ErrSessionClosed)
}

func TestKill(t *testing.T) {
	skipWithoutPTY(t)
	m := NewManager(nil)

	session, err := m.Launch(context.Background(), shPlan("", nil, "sleep 30"), id.NewWindowID())
	require.NoError(t, err)
	require.Len(t, m.ListSessions(), 1)

	require.NoError(t, m.Kill(session.ID()))
	select {
	case <-session.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("killed session did not exit")
	}

	assert.Empty(t, m.ListSessions())
	_, err = m.GetSession(session.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestUnknownSession(t *testing.T) {
	m := NewManager(nil)
	missing := id.NewTerminalID()

	assert.ErrorIs(t, m.Write(missing, []byte("x")), ErrSessionNotFound)
	_, err := m.Read(missing)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Kill(missing), ErrSessionNotFound)
	assert.Error(t, m.Resize(missing, 0, 0))
}

func TestLaunchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewManager(nil).Launch(ctx, shPlan("", nil, "true"), id.NewWindowID())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCommand(t *testing.T) {
	t.Setenv("SHELL", "/bin/zsh")

	tests := []struct {
		name        string
		shell       settings.Shell
		wantProgram string
		wantArgs    []string
	}{
		{"system", settings.SystemShell(), "/bin/zsh", nil},
		{"program", settings.Shell{Kind: settings.ShellProgram, Program: "fish"}, "fish", nil},
		{"with arguments", settings.Shell{Kind: settings.ShellWithArguments, Program: "ssh", Args: []string{"host", "-t"}}, "ssh", []string{"host", "-t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, args := command(tt.shell)
			assert.Equal(t, tt.wantProgram, program)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestEnviron(t *testing.T) {
	got := environ([]string{"PATH=/usr/bin", "HOME=/home/u", "broken"}, map[string]string{"PATH": "/venv/bin:/usr/bin", "A": "1"})
	assert.Equal(t, []string{
		"A=1",
		"HOME=/home/u",
		"PATH=/venv/bin:/usr/bin",
		"TERM=xterm-256color",
	}, got)

	got = environ([]string{"TERM=screen"}, map[string]string{})
	assert.Equal(t, []string{"TERM=screen"}, got)
}

func TestBuffer(t *testing.T) {
	b := NewBuffer(8)

	_, _ = b.Write([]byte("abc"))
	assert.Equal(t, []byte("abc"), b.ReadAll())
	assert.Equal(t, []byte{}, b.ReadAll())

	// overflow keeps the newest size-1 bytes
	_, _ = b.Write([]byte("0123456789"))
	assert.Equal(t, []byte("3456789"), b.ReadAll())
}
