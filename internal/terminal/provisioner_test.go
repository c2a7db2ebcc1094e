package terminal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/termprov/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termprov/internal/settings"
	"github.com/GriffinCanCode/termprov/internal/shared/id"
	"github.com/GriffinCanCode/termprov/internal/shared/platform"
)

type recordingSettings struct {
	mu       sync.Mutex
	global   settings.Terminal
	byMember map[string]settings.Terminal
	seen     []*settings.Location
}

func (r *recordingSettings) Terminal(loc *settings.Location) settings.Terminal {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, loc)
	if loc != nil {
		if term, ok := r.byMember[loc.MemberID]; ok {
			return term.Clone()
		}
	}
	return r.global.Clone()
}

func pytestRequest() Request {
	return TaskRequest(TaskSpec{
		ID:      "task-1",
		Label:   "pytest",
		Command: "pytest",
		Args:    []string{"-k", "foo bar"},
		Cwd:     "/home/u/proj",
	})
}

func processPath(string) (string, bool) { return "/usr/bin", true }

func TestPlanRemoteTask(t *testing.T) {
	p := NewProvisioner(Config{
		Workspace: newTree(t, "/home/u/proj", false, ".venv", ".venv/bin"),
		Remote:    &RemoteTarget{HostLabel: "host", Argv: []string{"ssh", "host"}},
	})

	plan, err := p.Plan(context.Background(), pytestRequest())
	require.NoError(t, err)

	assert.True(t, plan.Remote)
	assert.Empty(t, plan.WorkingDirectory)
	assert.Empty(t, plan.Env)
	assert.Equal(t, "/home/u/proj/.venv", plan.VenvDirectory)
	assert.Empty(t, plan.ActivationCommand)

	require.NotNil(t, plan.Task)
	assert.Equal(t, TaskRunning, plan.Task.Status)
	assert.Equal(t, HideNever, plan.Task.Hide)

	assert.Equal(t, settings.ShellWithArguments, plan.Shell.Kind)
	assert.Equal(t, "ssh", plan.Shell.Program)
	assert.Equal(t, "host — Terminal", plan.Shell.TitleOverride)
	require.Len(t, plan.Shell.Args, 3)
	assert.Equal(t, []string{"host", "-t"}, plan.Shell.Args[:2])
	assert.Equal(t,
		`sh -c 'cd "/home/u/proj"; TERM=xterm-256color VIRTUAL_ENV=/home/u/proj/.venv PATH=/home/u/proj/.venv/bin:$PATH  pytest -k '"'"'foo bar'"'"''`,
		plan.Shell.Args[2],
	)

	calls := parseRemote(t, plan.Shell.Args[2])
	require.Len(t, calls, 2)
	cd, _ := fields(t, calls[0])
	assert.Equal(t, []string{"cd", "/home/u/proj"}, cd)

	argv, assigns := fields(t, calls[1], "PATH=/usr/bin")
	assert.Equal(t, []string{"pytest", "-k", "foo bar"}, argv)
	assert.Equal(t, map[string]string{
		"TERM":        "xterm-256color",
		"VIRTUAL_ENV": "/home/u/proj/.venv",
		"PATH":        "/home/u/proj/.venv/bin:/usr/bin",
	}, assigns)
}

func TestPlanRemoteShell(t *testing.T) {
	p := NewProvisioner(Config{
		Workspace:   newTree(t, "/home/u/proj", false, ".venv/bin"),
		Environment: StaticEnvironment{"TERM": "screen"},
		Remote:      &RemoteTarget{HostLabel: "box", Argv: []string{"ssh", "-p", "2222", "box"}},
	})

	plan, err := p.Plan(context.Background(), ShellRequest("~/proj"))
	require.NoError(t, err)

	assert.Nil(t, plan.Task)
	assert.Empty(t, plan.WorkingDirectory)
	assert.Equal(t, []string{"-p", "2222", "box", "-t"}, plan.Shell.Args[:4])
	assert.Equal(t, `sh -c 'cd "$HOME/proj"; TERM=screen  exec ${SHELL:-sh} -l'`, plan.Shell.Args[4])
	assert.Equal(t, "box — Terminal", plan.Shell.TitleOverride)
}

func TestPlanLocalTaskEnvironment(t *testing.T) {
	fromSettings := settings.Default()
	fromSettings.Env = map[string]string{"A": "2", "B": "2"}

	p := NewProvisioner(Config{
		Settings:    settings.Static(fromSettings),
		Workspace:   newTree(t, "/home/u/proj", true, ".venv/bin"),
		Environment: StaticEnvironment{"A": "1"},
		Platform:    platform.Linux,
		LookupEnv:   processPath,
	})

	req := pytestRequest()
	req.Task.Env = map[string]string{"B": "3", "C": "3"}

	plan, err := p.Plan(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, plan.Remote)
	assert.Equal(t, "/home/u/proj", plan.WorkingDirectory)
	assert.Equal(t, settings.Shell{
		Kind:    settings.ShellWithArguments,
		Program: "pytest",
		Args:    []string{"-k", "foo bar"},
	}, plan.Shell)
	assert.Equal(t, map[string]string{
		"A":           "2",
		"B":           "3",
		"C":           "3",
		"VIRTUAL_ENV": "/home/u/proj/.venv",
		"PATH":        "/home/u/proj/.venv/bin:/usr/bin",
	}, plan.Env)
}

func TestPlanLocalTaskWithoutVenv(t *testing.T) {
	p := NewProvisioner(Config{
		Workspace: newTree(t, "/home/u/proj", true),
		Platform:  platform.Linux,
		LookupEnv: processPath,
	})

	plan, err := p.Plan(context.Background(), pytestRequest())
	require.NoError(t, err)
	assert.Empty(t, plan.VenvDirectory)
	assert.NotContains(t, plan.Env, "PATH")
	assert.NotContains(t, plan.Env, "VIRTUAL_ENV")
}

func TestPlanPathJoinFailure(t *testing.T) {
	p := NewProvisioner(Config{
		Workspace: newTree(t, "/home/u/a:b", true, ".venv/bin"),
		Platform:  platform.Linux,
	})

	req := pytestRequest()
	req.Task.Cwd = "/home/u/a:b"

	_, err := p.Plan(context.Background(), req)
	assert.ErrorIs(t, err, ErrPathJoin)
}

func TestPlanWorkingDirectory(t *testing.T) {
	tree := newTree(t, "/home/u/proj", true)
	p := NewProvisioner(Config{Workspace: tree, Platform: platform.Linux})
	ctx := context.Background()

	plan, err := p.Plan(ctx, ShellRequest(""))
	require.NoError(t, err)
	assert.Equal(t, "/home/u/proj", plan.WorkingDirectory)

	plan, err = p.Plan(ctx, ShellRequest("/srv"))
	require.NoError(t, err)
	assert.Equal(t, "/srv", plan.WorkingDirectory)

	plan, err = p.Plan(ctx, TaskRequest(TaskSpec{ID: "t", Command: "make"}))
	require.NoError(t, err)
	assert.Equal(t, "/home/u/proj", plan.WorkingDirectory)

	bare := NewProvisioner(Config{Platform: platform.Linux})
	plan, err = bare.Plan(ctx, ShellRequest(""))
	require.NoError(t, err)
	assert.Empty(t, plan.WorkingDirectory)
}

func TestPlanSettingsLocation(t *testing.T) {
	tree := newTree(t, "/home/u/proj", true)
	member, _, _ := tree.FindMember("/home/u/proj")

	custom := settings.Default()
	custom.Shell = settings.Shell{Kind: settings.ShellProgram, Program: "fish"}
	custom.CursorShape = settings.CursorBar

	provider := &recordingSettings{
		global:   settings.Default(),
		byMember: map[string]settings.Terminal{member.ID: custom},
	}
	p := NewProvisioner(Config{Settings: provider, Workspace: tree, Platform: platform.Linux})

	plan, err := p.Plan(context.Background(), ShellRequest("/home/u/proj/src"))
	require.NoError(t, err)
	assert.Equal(t, "fish", plan.Shell.Program)
	assert.Equal(t, settings.CursorBar, plan.CursorShape)

	plan, err = p.Plan(context.Background(), ShellRequest("/tmp"))
	require.NoError(t, err)
	assert.Equal(t, settings.ShellSystem, plan.Shell.Kind)

	require.Len(t, provider.seen, 2)
	assert.Equal(t, &settings.Location{MemberID: member.ID, Path: "src"}, provider.seen[0])
	assert.Nil(t, provider.seen[1])
}

func TestPlanIsIdempotent(t *testing.T) {
	p := NewProvisioner(Config{
		Workspace:   newTree(t, "/home/u/proj", false, ".venv/bin"),
		Environment: StaticEnvironment{"Z": "z", "A": "a b", "M": "it's"},
		Remote:      &RemoteTarget{HostLabel: "host", Argv: []string{"ssh", "host"}},
	})

	first, err := p.Plan(context.Background(), pytestRequest())
	require.NoError(t, err)
	second, err := p.Plan(context.Background(), pytestRequest())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPlanInvalidRequests(t *testing.T) {
	p := NewProvisioner(Config{})

	tests := []struct {
		name string
		req  Request
	}{
		{"unknown kind", Request{Kind: "window"}},
		{"task without spec", Request{Kind: KindTask}},
		{"task without command", TaskRequest(TaskSpec{ID: "t"})},
		{"shell with task", Request{Kind: KindShell, Task: &TaskSpec{Command: "x"}}},
		{"bad hide strategy", TaskRequest(TaskSpec{ID: "t", Command: "x", Hide: "sometimes"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Plan(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestPlanCanceled(t *testing.T) {
	p := NewProvisioner(Config{Workspace: newTree(t, "/home/u/proj", true)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Plan(ctx, ShellRequest(""))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlanInheritedEnvironmentFailureIsNotFatal(t *testing.T) {
	p := NewProvisioner(Config{
		Environment: failingEnvironment{},
		Platform:    platform.Linux,
	})

	plan, err := p.Plan(context.Background(), ShellRequest("/srv"))
	require.NoError(t, err)
	assert.Empty(t, plan.Env)
}

type failingEnvironment struct{}

func (failingEnvironment) Environment(context.Context) (map[string]string, error) {
	return nil, errors.New("shell environment unavailable")
}

func TestProvisionShellActivatesVenv(t *testing.T) {
	sink := &fakeSink{}
	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	p := NewProvisioner(Config{
		Workspace: newTree(t, "/home/u/proj", true, ".venv/bin"),
		Sink:      sink,
		Platform:  platform.Linux,
		Metrics:   metrics,
	})

	window := id.NewWindowID()
	handle, err := p.Provision(context.Background(), ShellRequest("/home/u/proj"), window)
	require.NoError(t, err)

	require.Len(t, sink.sessions, 1)
	session := sink.sessions[0]
	assert.Equal(t, session.ID(), handle.ID)
	assert.Equal(t, window, handle.Window)
	assert.Equal(t, "source /home/u/proj/.venv/bin/activate\n", session.written())
	assert.Equal(t, settings.SystemShell(), handle.Plan.Shell)
	assert.Equal(t, "/home/u/proj", handle.Plan.WorkingDirectory)

	assert.Equal(t, []*Handle{handle}, p.LocalHandles())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ProvisionTotal.WithLabelValues("shell", "local", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.VenvDetected.WithLabelValues("workspace")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TerminalsActive))

	close(session.done)
	assert.Eventually(t, func() bool { return len(p.LocalHandles()) == 0 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.TerminalsActive) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestProvisionTaskDoesNotActivate(t *testing.T) {
	sink := &fakeSink{}
	p := NewProvisioner(Config{
		Workspace: newTree(t, "/home/u/proj", true, ".venv/bin"),
		Sink:      sink,
		Platform:  platform.Linux,
		LookupEnv: processPath,
	})

	handle, err := p.Provision(context.Background(), pytestRequest(), id.NewWindowID())
	require.NoError(t, err)
	assert.Empty(t, sink.sessions[0].written())
	assert.Equal(t, "/home/u/proj/.venv", handle.Plan.Env["VIRTUAL_ENV"])
}

func TestProvisionActivationWriteFailureIsNotFatal(t *testing.T) {
	sink := &failingWriteSink{}
	p := NewProvisioner(Config{
		Workspace: newTree(t, "/home/u/proj", true, ".venv/bin"),
		Sink:      sink,
		Platform:  platform.Linux,
	})

	handle, err := p.Provision(context.Background(), ShellRequest("/home/u/proj"), id.NewWindowID())
	require.NoError(t, err)
	assert.NotEmpty(t, handle.Plan.ActivationCommand)
}

type failingWriteSink struct{}

func (failingWriteSink) Launch(context.Context, *LaunchPlan, id.WindowID) (Session, error) {
	s := newFakeSession()
	s.err = errors.New("pty closed")
	return s, nil
}

func TestProvisionErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewProvisioner(Config{}).Provision(ctx, ShellRequest("/srv"), id.NewWindowID())
	assert.ErrorIs(t, err, ErrNoSink)

	launchErr := errors.New("fork failed")
	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	p := NewProvisioner(Config{Sink: &fakeSink{err: launchErr}, Metrics: metrics})

	_, err = p.Provision(ctx, ShellRequest("/srv"), id.NewWindowID())
	assert.ErrorIs(t, err, launchErr)
	assert.Empty(t, p.LocalHandles())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ProvisionTotal.WithLabelValues("shell", "local", "error")))
}
