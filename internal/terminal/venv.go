package terminal

import (
	"context"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/termprov/internal/settings"
	"github.com/GriffinCanCode/termprov/internal/shared/platform"
	"github.com/GriffinCanCode/termprov/internal/toolchain"
)

// VenvSource names the lookup step that found a virtual environment
type VenvSource string

const (
	SourceToolchain  VenvSource = "toolchain"
	SourceWorkspace  VenvSource = "workspace"
	SourceFilesystem VenvSource = "filesystem"
)

// Venv is a located virtual environment root
type Venv struct {
	Dir    string
	Source VenvSource
}

// lookupStep reports settled=true to end the chain; dir is empty when the
// chain ends without a result
type lookupStep struct {
	source VenvSource
	run    func(ctx context.Context, dir string, policy settings.VenvPolicy) (venv string, settled bool)
}

// Locator finds the Python virtual environment for a directory
type Locator struct {
	workspace  Workspace
	toolchains ToolchainService
	fs         Filesystem
	platform   platform.Platform
	logger     *zap.Logger
}

// NewLocator creates a locator. toolchains and fs may be nil, which skips the
// corresponding steps.
func NewLocator(ws Workspace, toolchains ToolchainService, fs Filesystem, p platform.Platform, logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{
		workspace:  ws,
		toolchains: toolchains,
		fs:         fs,
		platform:   p,
		logger:     logger,
	}
}

// Locate tries, in order: the member's active Python toolchain, the policy's
// candidate directories in the workspace index, then the same candidates on
// disk. A disabled policy only allows the toolchain step. Lookup failures are
// logged and treated as misses.
func (l *Locator) Locate(ctx context.Context, dir string, policy settings.VenvPolicy) (Venv, bool) {
	if dir == "" {
		return Venv{}, false
	}

	steps := []lookupStep{
		{SourceToolchain, l.fromToolchain},
		{"", l.policyGate},
		{SourceWorkspace, l.inWorkspace},
		{SourceFilesystem, l.onFilesystem},
	}

	for _, step := range steps {
		if ctx.Err() != nil {
			return Venv{}, false
		}
		venv, settled := step.run(ctx, dir, policy)
		if !settled {
			continue
		}
		if venv == "" {
			return Venv{}, false
		}
		l.logger.Debug("Found python virtual environment",
			zap.String("dir", dir),
			zap.String("venv", venv),
			zap.String("source", string(step.source)),
		)
		return Venv{Dir: venv, Source: step.source}, true
	}
	return Venv{}, false
}

func (l *Locator) fromToolchain(ctx context.Context, dir string, _ settings.VenvPolicy) (string, bool) {
	if l.toolchains == nil || l.workspace == nil {
		return "", false
	}
	member, _, ok := l.workspace.FindMember(dir)
	if !ok {
		return "", false
	}

	tc, err := l.toolchains.Active(ctx, member.ID, toolchain.Python)
	if err != nil {
		l.logger.Warn("Toolchain lookup failed",
			zap.String("member", member.ID),
			zap.Error(err),
		)
		return "", false
	}
	if tc == nil {
		return "", false
	}

	// <venv>/bin/python
	bin := l.platform.Dir(tc.Path)
	if bin == "" {
		return "", true
	}
	return l.platform.Dir(bin), true
}

func (l *Locator) policyGate(_ context.Context, _ string, policy settings.VenvPolicy) (string, bool) {
	return "", policy.IsOff()
}

func (l *Locator) inWorkspace(_ context.Context, dir string, policy settings.VenvPolicy) (string, bool) {
	if l.workspace == nil {
		return "", false
	}
	for _, name := range policy.Directories {
		venv := l.platform.Join(dir, name)
		member, rel, ok := l.workspace.FindMember(l.platform.Join(venv, l.platform.BinDir()))
		if !ok {
			continue
		}
		if entry, ok := member.EntryForPath(rel); ok && entry.IsDir {
			return venv, true
		}
	}
	return "", false
}

func (l *Locator) onFilesystem(ctx context.Context, dir string, policy settings.VenvPolicy) (string, bool) {
	if l.fs == nil || l.workspace == nil {
		return "", true
	}
	member, _, ok := l.workspace.FindMember(dir)
	if !ok || !member.Local {
		return "", true
	}

	for _, name := range policy.Directories {
		venv := l.platform.Join(dir, name)
		bin := l.platform.Join(venv, l.platform.BinDir())
		meta, err := l.fs.Metadata(ctx, bin)
		if err != nil {
			l.logger.Debug("Filesystem probe failed", zap.String("path", bin), zap.Error(err))
			continue
		}
		if meta != nil && meta.IsDir {
			return venv, true
		}
	}
	return "", true
}
