package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

// MemberDir is the directory inside a workspace member that holds its
// terminal settings overrides
const MemberDir = ".termprov"

var memberFiles = []string{"settings.toml", "settings.yaml", "settings.yml"}

type fileContent struct {
	Terminal terminalContent `toml:"terminal" yaml:"terminal"`
}

// terminalContent mirrors Terminal with optional fields so a member file can
// override only what it sets
type terminalContent struct {
	Shell                 *shellContent     `toml:"shell" yaml:"shell"`
	Env                   map[string]string `toml:"env" yaml:"env"`
	DetectVenv            *venvContent      `toml:"detect_venv" yaml:"detect_venv"`
	CursorShape           *string           `toml:"cursor_shape" yaml:"cursor_shape"`
	AlternateScroll       *bool             `toml:"alternate_scroll" yaml:"alternate_scroll"`
	MaxScrollHistoryLines *int              `toml:"max_scroll_history_lines" yaml:"max_scroll_history_lines"`
}

type shellContent struct {
	Program       string   `toml:"program" yaml:"program"`
	Args          []string `toml:"args" yaml:"args"`
	TitleOverride string   `toml:"title_override" yaml:"title_override"`
}

type venvContent struct {
	Enabled        *bool    `toml:"enabled" yaml:"enabled"`
	Directories    []string `toml:"directories" yaml:"directories"`
	ActivateScript string   `toml:"activate_script" yaml:"activate_script"`
}

// FileProvider serves terminal settings from a global file overlaid with
// per-member files. Snapshots are rebuilt only on load; lookups never touch
// the disk.
type FileProvider struct {
	globalPath string
	logger     *zap.Logger

	mu      sync.RWMutex
	global  terminalContent
	members map[string]terminalContent
	roots   map[string]string
}

// NewFileProvider loads the global settings file. An empty path or a missing
// file yields the built-in defaults.
func NewFileProvider(globalPath string, logger *zap.Logger) (*FileProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &FileProvider{
		globalPath: globalPath,
		logger:     logger,
		members:    make(map[string]terminalContent),
		roots:      make(map[string]string),
	}
	if err := p.loadGlobal(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadMember reads the first settings file found under root/.termprov.
// Members without one inherit the global settings.
func (p *FileProvider) LoadMember(memberID, root string) error {
	content, path, err := readMember(root)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.roots[memberID] = root
	if path == "" {
		delete(p.members, memberID)
		return nil
	}
	p.members[memberID] = content
	p.logger.Debug("Loaded member terminal settings",
		zap.String("member", memberID),
		zap.String("path", path),
	)
	return nil
}

// Reload re-reads the global file and every known member file
func (p *FileProvider) Reload() error {
	if err := p.loadGlobal(); err != nil {
		return err
	}

	p.mu.RLock()
	roots := make(map[string]string, len(p.roots))
	for id, root := range p.roots {
		roots[id] = root
	}
	p.mu.RUnlock()

	for memberID, root := range roots {
		if err := p.LoadMember(memberID, root); err != nil {
			return fmt.Errorf("failed to reload settings for member %s: %w", memberID, err)
		}
	}
	return nil
}

// Terminal resolves settings for loc. A nil location or an unknown member
// resolves to the global snapshot.
func (p *FileProvider) Terminal(loc *Location) Terminal {
	p.mu.RLock()
	defer p.mu.RUnlock()

	resolved := Default()
	apply(&resolved, p.global)
	if loc != nil {
		if member, ok := p.members[loc.MemberID]; ok {
			apply(&resolved, member)
		}
	}
	return resolved
}

func (p *FileProvider) loadGlobal() error {
	if p.globalPath == "" {
		return nil
	}
	content, err := loadFile(p.globalPath)
	if errors.Is(err, os.ErrNotExist) {
		p.logger.Debug("Global terminal settings not found, using defaults", zap.String("path", p.globalPath))
		return nil
	}
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.global = content
	p.mu.Unlock()
	return nil
}

func readMember(root string) (terminalContent, string, error) {
	for _, name := range memberFiles {
		path := filepath.Join(root, MemberDir, name)
		content, err := loadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return terminalContent{}, "", err
		}
		return content, path, nil
	}
	return terminalContent{}, "", nil
}

// loadFile parses a TOML or YAML settings file, chosen by extension
func loadFile(path string) (terminalContent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return terminalContent{}, err
	}

	var content fileContent
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &content)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &content)
	default:
		return terminalContent{}, fmt.Errorf("unsupported settings format %q: %s", ext, path)
	}
	if err != nil {
		return terminalContent{}, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}

	if err := content.Terminal.validate(); err != nil {
		return terminalContent{}, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return content.Terminal, nil
}

func (c terminalContent) validate() error {
	if c.DetectVenv != nil {
		if _, err := ParseActivateScript(c.DetectVenv.ActivateScript); err != nil {
			return err
		}
	}
	if c.CursorShape != nil {
		switch CursorShape(*c.CursorShape) {
		case CursorBlock, CursorBar, CursorUnderline, CursorHollow:
		default:
			return fmt.Errorf("unknown cursor shape: %q", *c.CursorShape)
		}
	}
	if c.MaxScrollHistoryLines != nil && *c.MaxScrollHistoryLines < 0 {
		return fmt.Errorf("max_scroll_history_lines must not be negative")
	}
	return nil
}

// apply overlays the fields set in c onto t
func apply(t *Terminal, c terminalContent) {
	if c.Shell != nil {
		switch {
		case c.Shell.Program == "":
			t.Shell = SystemShell()
		case len(c.Shell.Args) == 0 && c.Shell.TitleOverride == "":
			t.Shell = Shell{Kind: ShellProgram, Program: c.Shell.Program}
		default:
			t.Shell = Shell{
				Kind:          ShellWithArguments,
				Program:       c.Shell.Program,
				Args:          append([]string(nil), c.Shell.Args...),
				TitleOverride: c.Shell.TitleOverride,
			}
		}
	}
	for k, v := range c.Env {
		t.Env[k] = v
	}
	if c.DetectVenv != nil {
		enabled := true
		if c.DetectVenv.Enabled != nil {
			enabled = *c.DetectVenv.Enabled
		}
		if !enabled {
			t.DetectVenv = VenvOff()
		} else {
			dirs := c.DetectVenv.Directories
			if len(dirs) == 0 {
				dirs = DefaultVenvDirectories
			}
			// validated on load
			script, _ := ParseActivateScript(c.DetectVenv.ActivateScript)
			t.DetectVenv = VenvAuto(dirs, script)
		}
	}
	if c.CursorShape != nil {
		t.CursorShape = CursorShape(*c.CursorShape)
	}
	if c.AlternateScroll != nil {
		t.AlternateScroll = *c.AlternateScroll
	}
	if c.MaxScrollHistoryLines != nil {
		lines := *c.MaxScrollHistoryLines
		t.MaxScrollHistoryLines = &lines
	}
}
