package terminal

import (
	"context"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/GriffinCanCode/termprov/internal/shared/platform"
)

// DefaultRemoteTerm is set for remote sessions whose TERM is unset. The
// remote host cannot be assumed to know the local terminal type.
const DefaultRemoteTerm = "xterm-256color"

// Compose merges environment layers; later layers override earlier ones
func Compose(layers ...map[string]string) map[string]string {
	env := make(map[string]string)
	for _, layer := range layers {
		maps.Copy(env, layer)
	}
	return env
}

// SortedKeys returns the keys of env in lexical order
func SortedKeys(env map[string]string) []string {
	return slices.Sorted(maps.Keys(env))
}

// DefaultTerm sets TERM unless it is already present
func DefaultTerm(env map[string]string) {
	if _, ok := env["TERM"]; !ok {
		env["TERM"] = DefaultRemoteTerm
	}
}

// PrependPath puts dir in front of PATH. The existing value comes from env,
// else from lookup (normally the process environment). Empty values count as
// absent.
func PrependPath(env map[string]string, dir string, p platform.Platform, lookup func(string) (string, bool)) error {
	sep := p.ListSeparator()
	if dir == "" || strings.Contains(dir, sep) {
		return ErrPathJoin
	}

	current := env["PATH"]
	if current == "" && lookup != nil {
		current, _ = lookup("PATH")
	}

	entries := append([]string{dir}, p.SplitList(current)...)
	env["PATH"] = strings.Join(entries, sep)
	return nil
}

// StaticEnvironment is a fixed inherited environment
type StaticEnvironment map[string]string

// Environment returns a copy of the map
func (s StaticEnvironment) Environment(context.Context) (map[string]string, error) {
	return maps.Clone(map[string]string(s)), nil
}

// ProcessEnvironment inherits the current process environment
type ProcessEnvironment struct{}

// Environment parses os.Environ
func (ProcessEnvironment) Environment(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env, nil
}
