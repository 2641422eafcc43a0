// Package prefs persists user preferences for the synq TUI in
// ~/.config/synq/prefs.toml.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds user preferences.
type Prefs struct {
	Theme         string `toml:"theme"`
	HideCompleted bool   `toml:"hide_completed"`
	Filter        string `toml:"filter,omitempty"`
}

const (
	defaultPrefsPath = "~/.config/synq/prefs.toml"
	defaultTheme     = "Dracula"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Defaults returns the preferences used when nothing is stored.
func Defaults() Prefs {
	return Prefs{Theme: defaultTheme}
}

// Load reads preferences from path. Any problem reading or parsing the file
// yields defaults rather than an error, since preferences are cosmetic.
func Load(path string) (Prefs, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Defaults(), nil
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return Defaults(), nil
	}

	p := Defaults()
	if err := toml.Unmarshal(data, &p); err != nil {
		return Defaults(), nil
	}
	return p.normalized(), nil
}

// Save writes preferences to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p.normalized())
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func (p Prefs) normalized() Prefs {
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	p.Filter = strings.TrimSpace(p.Filter)
	return p
}

func resolvePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = defaultPrefsPath
	}
	if rest, ok := strings.CutPrefix(trimmed, "~"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, rest)
	}
	return filepath.Abs(trimmed)
}
