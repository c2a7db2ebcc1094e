package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeMetadata(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".venv", "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "file.txt"), []byte("x"), 0o644))

	probe := NewProbe(nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		path  string
		found bool
		isDir bool
	}{
		{"directory", filepath.Join(root, ".venv", "bin"), true, true},
		{"file", filepath.Join(root, "file.txt"), true, false},
		{"missing", filepath.Join(root, "venv", "bin"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := probe.Metadata(ctx, tt.path)
			require.NoError(t, err)
			if !tt.found {
				assert.Nil(t, meta)
				return
			}
			require.NotNil(t, meta)
			assert.Equal(t, tt.isDir, meta.IsDir)
		})
	}
}
