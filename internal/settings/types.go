package settings

import (
	"fmt"
	"strings"

	"github.com/GriffinCanCode/termprov/internal/shared/platform"
)

// ShellKind selects how the terminal's shell is started
type ShellKind string

const (
	ShellSystem        ShellKind = "system"
	ShellProgram       ShellKind = "program"
	ShellWithArguments ShellKind = "with_arguments"
)

// Shell describes the program a terminal runs
type Shell struct {
	Kind          ShellKind `json:"kind"`
	Program       string    `json:"program,omitempty"`
	Args          []string  `json:"args,omitempty"`
	TitleOverride string    `json:"title_override,omitempty"`
}

// SystemShell uses the user's login shell
func SystemShell() Shell {
	return Shell{Kind: ShellSystem}
}

// ActivateScript names the flavour of virtual environment activation script
type ActivateScript string

const (
	ActivateDefault    ActivateScript = "default"
	ActivateCsh        ActivateScript = "csh"
	ActivateFish       ActivateScript = "fish"
	ActivateNushell    ActivateScript = "nushell"
	ActivatePowerShell ActivateScript = "powershell"
)

// ParseActivateScript validates a script kind read from a settings file
func ParseActivateScript(s string) (ActivateScript, error) {
	switch script := ActivateScript(strings.ToLower(strings.TrimSpace(s))); script {
	case "":
		return ActivateDefault, nil
	case ActivateDefault, ActivateCsh, ActivateFish, ActivateNushell, ActivatePowerShell:
		return script, nil
	default:
		return "", fmt.Errorf("unknown activate script: %q", s)
	}
}

// Keyword is the shell command that loads the activation script
func (s ActivateScript) Keyword(p platform.Platform) string {
	switch s {
	case ActivateNushell:
		return "overlay use"
	case ActivatePowerShell:
		return "."
	case ActivateCsh, ActivateFish:
		return "source"
	default:
		if p.IsWindows() {
			return "."
		}
		return "source"
	}
}

// ScriptName is the activation script's file name inside the bin directory
func (s ActivateScript) ScriptName() string {
	switch s {
	case ActivateCsh:
		return "activate.csh"
	case ActivateFish:
		return "activate.fish"
	case ActivateNushell:
		return "activate.nu"
	case ActivatePowerShell:
		return "activate.ps1"
	default:
		return "activate"
	}
}

// VenvPolicy controls Python virtual environment detection. A disabled policy
// still lets an active toolchain supply the environment.
type VenvPolicy struct {
	Enabled        bool           `json:"enabled"`
	Directories    []string       `json:"directories,omitempty"`
	ActivateScript ActivateScript `json:"activate_script,omitempty"`
}

// DefaultVenvDirectories are searched when a settings file enables detection
// without listing directories
var DefaultVenvDirectories = []string{".env", "env", ".venv", "venv"}

// VenvOff disables directory-based detection
func VenvOff() VenvPolicy {
	return VenvPolicy{}
}

// VenvAuto searches directories in order and activates with script
func VenvAuto(directories []string, script ActivateScript) VenvPolicy {
	return VenvPolicy{
		Enabled:        true,
		Directories:    append([]string(nil), directories...),
		ActivateScript: script,
	}
}

// IsOff reports whether directory-based detection is disabled
func (p VenvPolicy) IsOff() bool {
	return !p.Enabled
}

// CursorShape is the terminal cursor style
type CursorShape string

const (
	CursorBlock     CursorShape = "block"
	CursorBar       CursorShape = "bar"
	CursorUnderline CursorShape = "underline"
	CursorHollow    CursorShape = "hollow"
)

// Terminal is a resolved snapshot of terminal settings for one location
type Terminal struct {
	Shell                 Shell             `json:"shell"`
	Env                   map[string]string `json:"env,omitempty"`
	DetectVenv            VenvPolicy        `json:"detect_venv"`
	CursorShape           CursorShape       `json:"cursor_shape"`
	AlternateScroll       bool              `json:"alternate_scroll"`
	MaxScrollHistoryLines *int              `json:"max_scroll_history_lines,omitempty"`
}

// Default returns the built-in terminal settings
func Default() Terminal {
	return Terminal{
		Shell:           SystemShell(),
		Env:             map[string]string{},
		DetectVenv:      VenvAuto(DefaultVenvDirectories, ActivateDefault),
		CursorShape:     CursorBlock,
		AlternateScroll: true,
	}
}

// Clone returns a deep copy so callers can never mutate a shared snapshot
func (t Terminal) Clone() Terminal {
	out := t
	out.Shell.Args = append([]string(nil), t.Shell.Args...)
	out.Env = make(map[string]string, len(t.Env))
	for k, v := range t.Env {
		out.Env[k] = v
	}
	out.DetectVenv.Directories = append([]string(nil), t.DetectVenv.Directories...)
	if t.MaxScrollHistoryLines != nil {
		lines := *t.MaxScrollHistoryLines
		out.MaxScrollHistoryLines = &lines
	}
	return out
}

// Location narrows a settings lookup to a path inside a workspace member
type Location struct {
	MemberID string
	Path     string
}

// Static serves one fixed snapshot for every location
type Static Terminal

// Terminal returns a copy of the snapshot
func (s Static) Terminal(*Location) Terminal {
	return Terminal(s).Clone()
}
