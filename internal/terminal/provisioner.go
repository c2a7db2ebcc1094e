package terminal

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/termprov/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termprov/internal/settings"
	"github.com/GriffinCanCode/termprov/internal/shared/id"
	"github.com/GriffinCanCode/termprov/internal/shared/platform"
)

// Config wires a Provisioner to its collaborators. Only Settings is needed
// for planning; Provision also needs Sink.
type Config struct {
	Settings    SettingsProvider
	Workspace   Workspace
	Toolchains  ToolchainService
	Filesystem  Filesystem
	Environment EnvironmentSource
	Sink        Sink

	// Remote marks the project as remote. Nil means local.
	Remote *RemoteTarget

	// Platform describes the local machine; RemotePlatform describes the
	// remote host and defaults to Linux.
	Platform       platform.Platform
	RemotePlatform platform.Platform

	Registry *Registry
	Metrics  *monitoring.Metrics
	Logger   *zap.Logger

	// LookupEnv reads the process environment; defaults to os.LookupEnv
	LookupEnv func(string) (string, bool)
}

// Provisioner turns terminal requests into launch plans and live sessions
type Provisioner struct {
	settings    SettingsProvider
	workspace   Workspace
	environment EnvironmentSource
	sink        Sink
	remote      *RemoteTarget
	platform    platform.Platform
	locator     *Locator
	registry    *Registry
	metrics     *monitoring.Metrics
	logger      *zap.Logger
	lookupEnv   func(string) (string, bool)
}

// NewProvisioner creates a provisioner
func NewProvisioner(cfg Config) *Provisioner {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Settings == nil {
		cfg.Settings = settings.Static(settings.Default())
	}
	if cfg.Environment == nil {
		cfg.Environment = StaticEnvironment(nil)
	}
	if cfg.Platform.OS == "" {
		cfg.Platform = platform.Current()
	}
	if cfg.RemotePlatform.OS == "" {
		cfg.RemotePlatform = platform.Linux
	}
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry(cfg.Logger)
	}
	if cfg.LookupEnv == nil {
		cfg.LookupEnv = os.LookupEnv
	}

	target := cfg.Platform
	if cfg.Remote != nil {
		target = cfg.RemotePlatform
	}

	p := &Provisioner{
		settings:    cfg.Settings,
		workspace:   cfg.Workspace,
		environment: cfg.Environment,
		sink:        cfg.Sink,
		remote:      cfg.Remote,
		platform:    target,
		locator:     NewLocator(cfg.Workspace, cfg.Toolchains, cfg.Filesystem, target, cfg.Logger),
		registry:    cfg.Registry,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		lookupEnv:   cfg.LookupEnv,
	}

	if p.metrics != nil {
		registry := p.registry
		metrics := p.metrics
		registry.Subscribe(func(Event) {
			metrics.SetTerminalsActive(registry.Len())
		})
	}
	return p
}

// Registry returns the handle registry
func (p *Provisioner) Registry() *Registry {
	return p.registry
}

// LocalHandles lists the live terminals this provisioner created
func (p *Provisioner) LocalHandles() []*Handle {
	return p.registry.List()
}

// Mode is "remote" for remote projects and "local" otherwise
func (p *Provisioner) Mode() string {
	if p.remote != nil {
		return "remote"
	}
	return "local"
}

// Plan resolves req without starting anything. Equal inputs give equal plans.
func (p *Provisioner) Plan(ctx context.Context, req Request) (*LaunchPlan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	dir := p.workingDirectory(req)
	term := p.settingsFor(dir)

	var (
		venv      Venv
		found     bool
		inherited map[string]string
	)
	// Both lookups degrade instead of failing, so the group only joins them.
	var g errgroup.Group
	g.Go(func() error {
		venv, found = p.locator.Locate(ctx, dir, term.DetectVenv)
		return nil
	})
	g.Go(func() error {
		env, err := p.environment.Environment(ctx)
		if err != nil {
			p.logger.Warn("Failed to read inherited environment", zap.Error(err))
			return nil
		}
		inherited = env
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var taskEnv map[string]string
	if req.Kind == KindTask {
		taskEnv = req.Task.Env
	}
	env := Compose(inherited, term.Env, taskEnv)

	plan := &LaunchPlan{
		Remote:                p.remote != nil,
		CursorShape:           term.CursorShape,
		AlternateScroll:       term.AlternateScroll,
		MaxScrollHistoryLines: term.MaxScrollHistoryLines,
	}
	if found {
		plan.VenvDirectory = venv.Dir
		plan.VenvSource = venv.Source
	}

	var err error
	switch req.Kind {
	case KindShell:
		err = p.planShell(plan, term, dir, env, venv, found)
	case KindTask:
		err = p.planTask(plan, req.Task, dir, env, venv, found)
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (p *Provisioner) planShell(plan *LaunchPlan, term settings.Terminal, dir string, env map[string]string, venv Venv, found bool) error {
	if found {
		if cmd, ok := ActivationCommand(venv.Dir, term.DetectVenv, p.platform); ok {
			plan.ActivationCommand = cmd
		}
	}

	if p.remote == nil {
		plan.WorkingDirectory = dir
		plan.Shell = term.Shell
		plan.Env = env
		return nil
	}

	DefaultTerm(env)
	shell, err := p.remoteShell(nil, dir, env, "")
	if err != nil {
		return err
	}
	plan.Shell = shell
	plan.Env = map[string]string{}
	return nil
}

func (p *Provisioner) planTask(plan *LaunchPlan, task *TaskSpec, dir string, env map[string]string, venv Venv, found bool) error {
	plan.Task = &TaskState{
		ID:           task.ID,
		FullLabel:    task.FullLabel,
		Label:        task.Label,
		CommandLabel: task.CommandLabel,
		Status:       TaskRunning,
		Hide:         task.Hide,
		ShowSummary:  task.ShowSummary,
		ShowCommand:  task.ShowCommand,
	}
	if plan.Task.Hide == "" {
		plan.Task.Hide = HideNever
	}

	if found {
		env["VIRTUAL_ENV"] = venv.Dir
	}

	if p.remote != nil {
		DefaultTerm(env)
		venvDir := ""
		if found {
			venvDir = venv.Dir
		}
		shell, err := p.remoteShell(&Command{Program: task.Command, Args: task.Args}, dir, env, venvDir)
		if err != nil {
			return err
		}
		plan.Shell = shell
		plan.Env = map[string]string{}
		return nil
	}

	if found {
		bin := p.platform.Join(venv.Dir, p.platform.BinDir())
		if err := PrependPath(env, bin, p.platform, p.lookupEnv); err != nil {
			return fmt.Errorf("failed to add %s to PATH: %w", bin, err)
		}
	}

	plan.WorkingDirectory = dir
	plan.Shell = settings.Shell{
		Kind:    settings.ShellWithArguments,
		Program: task.Command,
		Args:    slices.Clone(task.Args),
	}
	plan.Env = env
	return nil
}

func (p *Provisioner) remoteShell(cmd *Command, dir string, env map[string]string, venv string) (settings.Shell, error) {
	p.logger.Debug("Connecting to a remote server",
		zap.String("host", p.remote.HostLabel),
		zap.Strings("transport", p.remote.Argv),
	)

	program, args, err := Synthesize(*p.remote, cmd, dir, env, venv, p.platform)
	if err != nil {
		return settings.Shell{}, err
	}
	return settings.Shell{
		Kind:          settings.ShellWithArguments,
		Program:       program,
		Args:          args,
		TitleOverride: p.remote.HostLabel + " — Terminal",
	}, nil
}

// Provision plans req, starts the session through the sink, registers its
// handle and, for shells with a virtual environment, types the activation
// command into it.
func (p *Provisioner) Provision(ctx context.Context, req Request, window id.WindowID) (*Handle, error) {
	timer := monitoring.NewTimer(p.metrics, string(req.Kind), p.Mode())

	handle, err := p.provision(ctx, req, window)
	if err != nil {
		timer.Stop("error")
		p.logger.Warn("Failed to provision terminal",
			zap.String("kind", string(req.Kind)),
			zap.Error(err),
		)
		return nil, err
	}
	timer.Stop("success")
	return handle, nil
}

func (p *Provisioner) provision(ctx context.Context, req Request, window id.WindowID) (*Handle, error) {
	if p.sink == nil {
		return nil, ErrNoSink
	}

	plan, err := p.Plan(ctx, req)
	if err != nil {
		return nil, err
	}

	session, err := p.sink.Launch(ctx, plan, window)
	if err != nil {
		return nil, fmt.Errorf("failed to launch terminal: %w", err)
	}

	handle := &Handle{
		ID:        session.ID(),
		Window:    window,
		Plan:      plan,
		CreatedAt: time.Now(),
		Session:   session,
	}
	p.registry.Register(handle)

	if plan.ActivationCommand != "" {
		if _, err := session.Write([]byte(plan.ActivationCommand)); err != nil {
			p.logger.Warn("Failed to activate virtual environment",
				zap.String("id", handle.ID.String()),
				zap.Error(err),
			)
		}
	}
	if plan.VenvSource != "" {
		p.metrics.RecordVenv(string(plan.VenvSource))
	}

	p.logger.Info("Provisioned terminal",
		zap.String("id", handle.ID.String()),
		zap.String("kind", string(req.Kind)),
		zap.String("mode", p.Mode()),
		zap.String("cwd", plan.WorkingDirectory),
		zap.String("venv", plan.VenvDirectory),
	)
	return handle, nil
}

func (p *Provisioner) workingDirectory(req Request) string {
	switch req.Kind {
	case KindShell:
		if req.Directory != "" {
			return req.Directory
		}
	case KindTask:
		if req.Task.Cwd != "" {
			return req.Task.Cwd
		}
	}
	if p.workspace == nil {
		return ""
	}
	dir, _ := p.workspace.ActiveDirectory()
	return dir
}

func (p *Provisioner) settingsFor(dir string) settings.Terminal {
	if dir == "" || p.workspace == nil {
		return p.settings.Terminal(nil)
	}
	member, rel, ok := p.workspace.FindMember(dir)
	if !ok {
		return p.settings.Terminal(nil)
	}
	return p.settings.Terminal(&settings.Location{MemberID: member.ID, Path: rel})
}
