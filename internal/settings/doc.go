// Package settings resolves terminal settings for a workspace location.
//
// Settings come from a global TOML or YAML file and optional per-member
// overrides stored in <member root>/.termprov/settings.{toml,yaml,yml}:
//
//	[terminal]
//	cursor_shape = "bar"
//	env = { RUST_LOG = "debug" }
//
//	[terminal.shell]
//	program = "/bin/zsh"
//
//	[terminal.detect_venv]
//	enabled = true
//	directories = [".venv", "venv"]
//	activate_script = "fish"
//
// Member files overlay the global file field by field; env maps merge key by
// key. Lookups are served from memory.
package settings
