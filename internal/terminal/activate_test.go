package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/termprov/internal/settings"
	"github.com/GriffinCanCode/termprov/internal/shared/platform"
)

func TestActivationCommand(t *testing.T) {
	auto := func(script settings.ActivateScript) settings.VenvPolicy {
		return settings.VenvAuto(settings.DefaultVenvDirectories, script)
	}

	tests := []struct {
		name     string
		venv     string
		policy   settings.VenvPolicy
		platform platform.Platform
		want     string
		ok       bool
	}{
		{"default posix", "/proj/.venv", auto(settings.ActivateDefault), platform.Linux, "source /proj/.venv/bin/activate\n", true},
		{"empty script is default", "/proj/.venv", settings.VenvPolicy{Enabled: true}, platform.Linux, "source /proj/.venv/bin/activate\n", true},
		{"csh", "/proj/.venv", auto(settings.ActivateCsh), platform.Darwin, "source /proj/.venv/bin/activate.csh\n", true},
		{"fish", "/proj/.venv", auto(settings.ActivateFish), platform.Linux, "source /proj/.venv/bin/activate.fish\n", true},
		{"nushell", "/proj/.venv", auto(settings.ActivateNushell), platform.Linux, "overlay use /proj/.venv/bin/activate.nu\n", true},
		{"powershell", "/proj/.venv", auto(settings.ActivatePowerShell), platform.Linux, ". /proj/.venv/bin/activate.ps1\n", true},
		{"path with space", "/my proj/.venv", auto(settings.ActivateDefault), platform.Linux, "source '/my proj/.venv/bin/activate'\n", true},
		{"windows default", `C:\proj\.venv`, auto(settings.ActivateDefault), platform.Windows, `. 'C:\proj\.venv\Scripts\activate'` + "\r", true},
		{"policy off", "/proj/.venv", settings.VenvOff(), platform.Linux, "", false},
		{"unquotable path", "/proj/\x00/.venv", auto(settings.ActivateDefault), platform.Linux, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ActivationCommand(tt.venv, tt.policy, tt.platform)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
