package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/GriffinCanCode/termprov/internal/providers/filesystem"
	"github.com/GriffinCanCode/termprov/internal/settings"
	"github.com/GriffinCanCode/termprov/internal/shared/id"
	"github.com/GriffinCanCode/termprov/internal/toolchain"
	"github.com/GriffinCanCode/termprov/internal/workspace"
)

var (
	// ErrPathJoin is returned when a PATH value cannot be assembled
	ErrPathJoin = errors.New("failed to create PATH env variable")
	// ErrNoSink is returned by Provision when no session sink is configured
	ErrNoSink = errors.New("no session sink configured")
	// ErrInvalidRequest is returned for malformed requests
	ErrInvalidRequest = errors.New("invalid terminal request")
)

// RequestKind distinguishes interactive shells from tasks
type RequestKind string

const (
	KindShell RequestKind = "shell"
	KindTask  RequestKind = "task"
)

// HideStrategy controls when a task's terminal is hidden
type HideStrategy string

const (
	HideNever     HideStrategy = "never"
	HideAlways    HideStrategy = "always"
	HideOnSuccess HideStrategy = "on_success"
)

// TaskSpec describes a command to run in a new terminal
type TaskSpec struct {
	ID           string            `json:"id"`
	FullLabel    string            `json:"full_label,omitempty"`
	Label        string            `json:"label,omitempty"`
	CommandLabel string            `json:"command_label,omitempty"`
	Command      string            `json:"command"`
	Args         []string          `json:"args,omitempty"`
	Env          map[string]string `json:"env,omitempty"`
	Cwd          string            `json:"cwd,omitempty"`
	Hide         HideStrategy      `json:"hide,omitempty"`
	ShowSummary  bool              `json:"show_summary"`
	ShowCommand  bool              `json:"show_command"`
}

// Request asks for either a shell or a task terminal
type Request struct {
	Kind RequestKind `json:"kind"`
	// Directory is the shell's starting directory
	Directory string    `json:"directory,omitempty"`
	Task      *TaskSpec `json:"task,omitempty"`
}

// ShellRequest opens an interactive shell in dir, or the active project
// directory when dir is empty
func ShellRequest(dir string) Request {
	return Request{Kind: KindShell, Directory: dir}
}

// TaskRequest runs spec in a new terminal
func TaskRequest(spec TaskSpec) Request {
	return Request{Kind: KindTask, Task: &spec}
}

// Validate checks the request is well formed
func (r Request) Validate() error {
	switch r.Kind {
	case KindShell:
		if r.Task != nil {
			return fmt.Errorf("%w: shell request carries a task", ErrInvalidRequest)
		}
	case KindTask:
		if r.Task == nil {
			return fmt.Errorf("%w: task request without a task", ErrInvalidRequest)
		}
		if r.Task.Command == "" {
			return fmt.Errorf("%w: task %q has no command", ErrInvalidRequest, r.Task.ID)
		}
		switch r.Task.Hide {
		case "", HideNever, HideAlways, HideOnSuccess:
		default:
			return fmt.Errorf("%w: unknown hide strategy %q", ErrInvalidRequest, r.Task.Hide)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, r.Kind)
	}
	return nil
}

// RemoteTarget describes an established connection to another host. Argv[0]
// is the transport program; the rest are its arguments.
type RemoteTarget struct {
	HostLabel string   `json:"host_label"`
	Argv      []string `json:"argv"`
}

// DefaultTransport is used when Argv is empty
const DefaultTransport = "ssh"

// Program returns the transport executable
func (t RemoteTarget) Program() string {
	if len(t.Argv) == 0 || t.Argv[0] == "" {
		return DefaultTransport
	}
	return t.Argv[0]
}

// Args returns the transport's own arguments
func (t RemoteTarget) Args() []string {
	if len(t.Argv) < 2 {
		return nil
	}
	return append([]string(nil), t.Argv[1:]...)
}

// TaskStatus is the lifecycle state of a task terminal
type TaskStatus string

const (
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// TaskState is attached to task terminals
type TaskState struct {
	ID           string       `json:"id"`
	FullLabel    string       `json:"full_label,omitempty"`
	Label        string       `json:"label,omitempty"`
	CommandLabel string       `json:"command_label,omitempty"`
	Status       TaskStatus   `json:"status"`
	Hide         HideStrategy `json:"hide,omitempty"`
	ShowSummary  bool         `json:"show_summary"`
	ShowCommand  bool         `json:"show_command"`
}

// LaunchPlan is everything needed to start a terminal
type LaunchPlan struct {
	// WorkingDirectory is empty for remote plans; the directory is part of
	// the synthesized command instead.
	WorkingDirectory      string               `json:"working_directory,omitempty"`
	Task                  *TaskState           `json:"task,omitempty"`
	Shell                 settings.Shell       `json:"shell"`
	Env                   map[string]string    `json:"env"`
	Remote                bool                 `json:"remote"`
	VenvDirectory         string               `json:"venv_directory,omitempty"`
	VenvSource            VenvSource           `json:"venv_source,omitempty"`
	ActivationCommand     string               `json:"activation_command,omitempty"`
	CursorShape           settings.CursorShape `json:"cursor_shape"`
	AlternateScroll       bool                 `json:"alternate_scroll"`
	MaxScrollHistoryLines *int                 `json:"max_scroll_history_lines,omitempty"`
}

// SettingsProvider returns a terminal settings snapshot for a location. A nil
// location asks for the global settings.
type SettingsProvider interface {
	Terminal(loc *settings.Location) settings.Terminal
}

// Workspace is the in-memory project tree
type Workspace interface {
	FindMember(abs string) (*workspace.Member, string, bool)
	ActiveDirectory() (string, bool)
}

// Filesystem answers metadata queries for unindexed paths. A nil result
// means the path does not exist.
type Filesystem interface {
	Metadata(ctx context.Context, path string) (*filesystem.Metadata, error)
}

// ToolchainService reports the toolchain selected for a workspace member
type ToolchainService interface {
	Active(ctx context.Context, memberID, language string) (*toolchain.Toolchain, error)
}

// EnvironmentSource supplies the inherited environment, e.g. the one the
// host was launched with from a command line
type EnvironmentSource interface {
	Environment(ctx context.Context) (map[string]string, error)
}

// Session is a live terminal created by a Sink
type Session interface {
	io.Writer
	ID() id.TerminalID
	// Done is closed when the session ends
	Done() <-chan struct{}
}

// Sink starts sessions from launch plans
type Sink interface {
	Launch(ctx context.Context, plan *LaunchPlan, window id.WindowID) (Session, error)
}

// Handle identifies a provisioned terminal
type Handle struct {
	ID        id.TerminalID `json:"id"`
	Window    id.WindowID   `json:"window"`
	Plan      *LaunchPlan   `json:"plan"`
	CreatedAt time.Time     `json:"created_at"`
	Session   Session       `json:"-"`
}
