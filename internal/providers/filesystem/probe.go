package filesystem

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"go.uber.org/zap"
)

// Metadata is the subset of file information the venv fallback needs
type Metadata struct {
	IsDir bool `json:"is_dir"`
}

// Probe answers metadata queries against any afs-supported storage
type Probe struct {
	fs     afs.Service
	logger *zap.Logger
}

// NewProbe creates a probe over the default afs service
func NewProbe(logger *zap.Logger) *Probe {
	return NewProbeWithService(afs.New(), logger)
}

// NewProbeWithService creates a probe over an existing afs service
func NewProbeWithService(fs afs.Service, logger *zap.Logger) *Probe {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Probe{fs: fs, logger: logger}
}

// Metadata returns nil when path does not exist
func (p *Probe) Metadata(ctx context.Context, path string) (*Metadata, error) {
	exists, err := p.fs.Exists(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", path, err)
	}
	if !exists {
		return nil, nil
	}

	object, err := p.fs.Object(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	p.logger.Debug("Probed path", zap.String("path", path), zap.Bool("is_dir", object.IsDir()))
	return &Metadata{IsDir: object.IsDir()}, nil
}
