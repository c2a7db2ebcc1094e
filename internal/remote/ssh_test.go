package remote

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgs(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "host only",
			opts: Options{Host: "box"},
			want: []string{"box"},
		},
		{
			name: "default port omitted",
			opts: Options{Host: "box", User: "u", Port: 22},
			want: []string{"u@box"},
		},
		{
			name: "everything",
			opts: Options{
				Host:         "box",
				User:         "u",
				Port:         2222,
				IdentityFile: "~/.ssh/id_ed25519",
				JumpHost:     "bastion",
				Config:       []string{"ServerAliveInterval=30"},
			},
			want: []string{
				"-J", "bastion",
				"-i", filepath.Join(home, ".ssh/id_ed25519"),
				"-p", "2222",
				"-o", "ServerAliveInterval=30",
				"u@box",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.Args())
		})
	}
}

func TestTarget(t *testing.T) {
	target, err := Options{Host: "box", User: "u"}.Target()
	require.NoError(t, err)
	assert.Equal(t, "box", target.HostLabel)
	assert.Equal(t, []string{"ssh", "u@box"}, target.Argv)
	assert.Equal(t, "ssh", target.Program())
	assert.Equal(t, []string{"u@box"}, target.Args())

	custom, err := Options{Host: "box", Program: "/usr/local/bin/ssh"}.Target()
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/ssh", custom.Program())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"missing host", Options{}},
		{"flag as host", Options{Host: "-oProxyCommand=evil"}},
		{"flag as user", Options{Host: "box", User: "-x"}},
		{"whitespace in host", Options{Host: "box other"}},
		{"flag as jump host", Options{Host: "box", JumpHost: "-J"}},
		{"port out of range", Options{Host: "box", Port: 70000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.opts.Target()
			assert.Error(t, err)
		})
	}

	_, err := Options{}.Target()
	assert.ErrorIs(t, err, ErrNoHost)
}
