// Package remote describes how to reach a remote project host. It only
// builds the transport argument vector; connecting is left to the ssh client
// the terminal runs.
package remote

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/termprov/internal/terminal"
)

// ErrNoHost is returned when Options has no host
var ErrNoHost = errors.New("remote host not configured")

// DefaultPort is the SSH port left off the command line
const DefaultPort = 22

// Options configures an SSH connection
type Options struct {
	Host         string
	User         string
	Port         int
	IdentityFile string
	// JumpHost is passed to ssh -J
	JumpHost string
	// Program defaults to ssh
	Program string
	// Config holds extra ssh -o settings, e.g. "ServerAliveInterval=30"
	Config []string
}

// Validate checks the options cannot smuggle flags into the ssh command line
func (o Options) Validate() error {
	if o.Host == "" {
		return ErrNoHost
	}
	for name, value := range map[string]string{"host": o.Host, "user": o.User, "jump host": o.JumpHost} {
		if strings.HasPrefix(value, "-") {
			return fmt.Errorf("invalid %s %q: must not start with '-'", name, value)
		}
		if strings.ContainsAny(value, " \t\r\n\x00") {
			return fmt.Errorf("invalid %s %q: contains whitespace", name, value)
		}
	}
	if o.Port < 0 || o.Port > 65535 {
		return fmt.Errorf("invalid port %d", o.Port)
	}
	return nil
}

// Args returns the ssh arguments that reach the host, without the program
func (o Options) Args() []string {
	args := []string{}

	if o.JumpHost != "" {
		args = append(args, "-J", o.JumpHost)
	}

	if o.IdentityFile != "" {
		args = append(args, "-i", expandPath(o.IdentityFile))
	}

	if o.Port != 0 && o.Port != DefaultPort {
		args = append(args, "-p", strconv.Itoa(o.Port))
	}

	for _, opt := range o.Config {
		args = append(args, "-o", opt)
	}

	target := o.Host
	if o.User != "" {
		target = o.User + "@" + o.Host
	}
	return append(args, target)
}

// Target converts the options into the descriptor the provisioner consumes
func (o Options) Target() (*terminal.RemoteTarget, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	program := o.Program
	if program == "" {
		program = terminal.DefaultTransport
	}
	return &terminal.RemoteTarget{
		HostLabel: o.Host,
		Argv:      append([]string{program}, o.Args()...),
	}, nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
