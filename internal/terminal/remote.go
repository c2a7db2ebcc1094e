package terminal

import (
	"fmt"
	"strings"

	"github.com/GriffinCanCode/termprov/internal/shared/platform"
	"github.com/GriffinCanCode/termprov/internal/shared/shell"
)

// LoginShell starts the remote user's login shell
const LoginShell = "exec ${SHELL:-sh} -l"

// Command is a program and its arguments. Program is emitted verbatim so
// it may be a shell snippet; arguments are quoted.
type Command struct {
	Program string
	Args    []string
}

// Synthesize builds the transport invocation that runs cmd in dir on the
// remote host with env applied. A nil cmd starts a login shell. venv, when
// set, is put in front of the remote PATH.
//
// Environment entries and arguments that cannot be quoted are dropped, as
// are entries whose key is not a shell variable name. A failure to quote the
// composed line is returned.
func Synthesize(target RemoteTarget, cmd *Command, dir string, env map[string]string, venv string, p platform.Platform) (string, []string, error) {
	line := RemoteCommandLine(cmd, dir, env, venv, p)

	quoted, err := shell.Quote(line)
	if err != nil {
		return "", nil, fmt.Errorf("failed to quote remote command: %w", err)
	}

	args := append(target.Args(), "-t", "sh -c "+quoted)
	return target.Program(), args, nil
}

// RemoteCommandLine composes the unquoted line run by `sh -c` on the remote
// host
func RemoteCommandLine(cmd *Command, dir string, env map[string]string, venv string, p platform.Platform) string {
	toRun := LoginShell
	if cmd != nil {
		toRun = strings.Join(append([]string{cmd.Program}, shell.QuoteAll(cmd.Args)...), " ")
	}

	var changes strings.Builder
	for _, k := range SortedKeys(env) {
		// BASH_FUNC_x%% and friends would turn the prefix into the command word
		if !shell.IsName(k) {
			continue
		}
		qv, err := shell.Quote(env[k])
		if err != nil {
			continue
		}
		changes.WriteString(k + "=" + qv + " ")
	}
	if venv != "" {
		if qbin, err := quotePath(p.Join(venv, p.BinDir())); err == nil {
			changes.WriteString("PATH=" + qbin + ":$PATH ")
		}
	}

	return changeDirectory(dir) + " " + changes.String() + " " + toRun
}

// changeDirectory returns the `cd ...;` prefix
func changeDirectory(dir string) string {
	if dir == "" {
		return "cd;"
	}
	if rest, ok := homeRelative(dir); ok {
		return `cd "$HOME/` + shell.EscapeDoubleQuoted(rest) + `";`
	}
	return "cd " + shell.DoubleQuote(dir) + ";"
}

// quotePath quotes a path for the remote shell, keeping home-relative paths
// expandable
func quotePath(path string) (string, error) {
	if strings.IndexByte(path, 0) >= 0 {
		return "", shell.ErrNulByte
	}
	if rest, ok := homeRelative(path); ok {
		return `"$HOME/` + shell.EscapeDoubleQuoted(rest) + `"`, nil
	}
	return shell.Quote(path)
}

// homeRelative strips a leading ~ or ~/. Quoting would disable tilde
// expansion, so callers spell these paths with $HOME instead.
func homeRelative(path string) (string, bool) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return "", false
	}
	return strings.TrimLeft(strings.TrimPrefix(path, "~"), "/"), true
}
