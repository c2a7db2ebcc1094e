// Package platform describes the operating system a terminal targets.
//
// Path layout, line endings and PATH separators are taken from an explicit
// Platform value rather than the running process, so the same request can be
// planned for a Windows host from a Linux machine and tests stay deterministic.
package platform

import (
	"path"
	"runtime"
	"strings"
)

// Platform identifies a target operating system by its GOOS name.
type Platform struct {
	OS string
}

var (
	Linux   = Platform{OS: "linux"}
	Darwin  = Platform{OS: "darwin"}
	Windows = Platform{OS: "windows"}
)

// Current returns the platform of the running process.
func Current() Platform {
	return Platform{OS: runtime.GOOS}
}

// Parse returns the platform named by os, falling back to Current for an
// empty name.
func Parse(os string) Platform {
	os = strings.ToLower(strings.TrimSpace(os))
	if os == "" {
		return Current()
	}
	return Platform{OS: os}
}

// IsWindows reports whether the platform uses Windows conventions.
func (p Platform) IsWindows() bool {
	return p.OS == "windows"
}

// BinDir is the name of a virtual environment's executable directory.
func (p Platform) BinDir() string {
	if p.IsWindows() {
		return "Scripts"
	}
	return "bin"
}

// LineEnding terminates a line typed into an interactive shell.
func (p Platform) LineEnding() string {
	if p.IsWindows() {
		return "\r"
	}
	return "\n"
}

// ListSeparator separates entries of the PATH variable.
func (p Platform) ListSeparator() string {
	if p.IsWindows() {
		return ";"
	}
	return ":"
}

// Separator separates path components.
func (p Platform) Separator() string {
	if p.IsWindows() {
		return `\`
	}
	return "/"
}

// Join joins path elements with the platform separator and cleans the result.
func (p Platform) Join(elem ...string) string {
	if !p.IsWindows() {
		return path.Join(elem...)
	}
	slashed := make([]string, len(elem))
	for i, e := range elem {
		slashed[i] = strings.ReplaceAll(e, `\`, "/")
	}
	return strings.ReplaceAll(path.Join(slashed...), "/", `\`)
}

// Dir returns the parent of name, or "" when name has no parent component.
func (p Platform) Dir(name string) string {
	slashed := name
	if p.IsWindows() {
		slashed = strings.ReplaceAll(name, `\`, "/")
	}
	slashed = path.Clean(slashed)
	idx := strings.LastIndex(slashed, "/")
	if idx < 0 {
		return ""
	}
	parent := slashed[:idx]
	if parent == "" {
		parent = "/"
	}
	if slashed == "/" {
		return ""
	}
	if p.IsWindows() {
		return strings.ReplaceAll(parent, "/", `\`)
	}
	return parent
}

// SplitList splits a PATH value into its entries. An empty value has none.
func (p Platform) SplitList(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, p.ListSeparator())
}
