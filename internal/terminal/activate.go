package terminal

import (
	"github.com/GriffinCanCode/termprov/internal/settings"
	"github.com/GriffinCanCode/termprov/internal/shared/platform"
	"github.com/GriffinCanCode/termprov/internal/shared/shell"
)

// ActivationCommand builds the line typed into a new shell to activate venv,
// e.g. "source /proj/.venv/bin/activate\n". It reports false when the policy
// is disabled or the script path cannot be quoted.
func ActivationCommand(venv string, policy settings.VenvPolicy, p platform.Platform) (string, bool) {
	if policy.IsOff() || venv == "" {
		return "", false
	}

	script := policy.ActivateScript
	if script == "" {
		script = settings.ActivateDefault
	}

	quoted, err := shell.Quote(p.Join(venv, p.BinDir(), script.ScriptName()))
	if err != nil {
		return "", false
	}
	return script.Keyword(p) + " " + quoted + p.LineEnding(), true
}
