package server

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/termprov/internal/infrastructure/config"
	"github.com/GriffinCanCode/termprov/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termprov/internal/providers/filesystem"
	"github.com/GriffinCanCode/termprov/internal/settings"
	"github.com/GriffinCanCode/termprov/internal/shared/platform"
	"github.com/GriffinCanCode/termprov/internal/terminal"
	"github.com/GriffinCanCode/termprov/internal/toolchain"
	"github.com/GriffinCanCode/termprov/internal/workspace"
)

// Runtime holds the collaborators behind a provisioner
type Runtime struct {
	Tree        *workspace.Tree
	Settings    *settings.FileProvider
	Toolchains  *toolchain.Store
	Remote      *terminal.RemoteTarget
	Provisioner *terminal.Provisioner
}

// Close releases the toolchain store
func (r *Runtime) Close() {
	r.Toolchains.Close()
}

// Bootstrap builds the workspace, settings and toolchain state described by
// cfg and returns a provisioner over them. sink and metrics may be nil.
func Bootstrap(ctx context.Context, cfg *config.Config, sink terminal.Sink, metrics *monitoring.Metrics, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var remote *terminal.RemoteTarget
	if cfg.Remote.Enabled() {
		target, err := cfg.Remote.SSHOptions().Target()
		if err != nil {
			return nil, fmt.Errorf("failed to configure remote host: %w", err)
		}
		remote = target
		logger.Info("Remote project", zap.String("host", target.HostLabel))
	}

	opts := []workspace.Option{workspace.WithLogger(logger.Named("workspace"))}
	if len(cfg.Terminal.Ignore) > 0 {
		opts = append(opts, workspace.WithIgnore(cfg.Terminal.Ignore...))
	}
	tree, err := workspace.NewTree(opts...)
	if err != nil {
		return nil, err
	}

	provider, err := settings.NewFileProvider(cfg.Terminal.SettingsFile, logger.Named("settings"))
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	for _, root := range cfg.Terminal.Workspace {
		if remote != nil {
			// remote roots live on the other host; they are tracked but not indexed
			member := workspace.NewMember(tree.NewMemberID(), root, false)
			member.Insert(".", true)
			tree.AddMember(member)
			continue
		}

		member, err := tree.Index(ctx, root)
		if err != nil {
			return nil, err
		}
		if err := provider.LoadMember(member.ID, member.AbsPath); err != nil {
			return nil, fmt.Errorf("failed to load settings for %s: %w", member.AbsPath, err)
		}
	}

	active, err := selectActive(tree, cfg.Terminal.Active, remote != nil)
	if err != nil {
		return nil, err
	}

	store := toolchain.NewStore()
	if cfg.Terminal.Python != "" && active != nil {
		store.Activate(active.ID, toolchain.Toolchain{
			Name:     "python",
			Language: toolchain.Python,
			Path:     cfg.Terminal.Python,
		})
	}

	var env terminal.EnvironmentSource = terminal.StaticEnvironment(nil)
	if cfg.Terminal.InheritEnv {
		env = terminal.ProcessEnvironment{}
	}

	local := platform.Current()
	if cfg.Terminal.Platform != "" {
		local = platform.Parse(cfg.Terminal.Platform)
	}

	provisioner := terminal.NewProvisioner(terminal.Config{
		Settings:    provider,
		Workspace:   tree,
		Toolchains:  store,
		Filesystem:  filesystem.NewProbe(logger.Named("filesystem")),
		Environment: env,
		Sink:        sink,
		Remote:      remote,
		Platform:    local,
		Metrics:     metrics,
		Logger:      logger.Named("terminal"),
	})

	return &Runtime{
		Tree:        tree,
		Settings:    provider,
		Toolchains:  store,
		Remote:      remote,
		Provisioner: provisioner,
	}, nil
}

// selectActive focuses the member rooted at root. An empty root keeps the
// first member active.
func selectActive(tree *workspace.Tree, root string, remote bool) (*workspace.Member, error) {
	members := tree.Members()
	if root == "" {
		if len(members) == 0 {
			return nil, nil
		}
		return members[0], nil
	}

	if !remote {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve active root: %w", err)
		}
		root = abs
	}
	root = filepath.Clean(root)

	for _, m := range members {
		if m.AbsPath == root {
			return m, tree.SetActive(m.ID)
		}
	}
	return nil, fmt.Errorf("active root %s is not a workspace member", root)
}
