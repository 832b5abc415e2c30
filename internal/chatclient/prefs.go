package chatclient

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"

	userIDPrefix = "user_"
)

type prefsFile struct {
	UserID string `yaml:"user_id,omitempty"`
	Theme  string `yaml:"theme,omitempty"`
}

// Preferences holds the client-local identity and theme. It is loaded once
// and handed to the session explicitly; every write is flushed to disk.
type Preferences struct {
	mu   sync.Mutex
	path string
	data prefsFile
}

// DefaultPrefsPath is <user config dir>/api-chatbot/prefs.yaml.
func DefaultPrefsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config dir: %w", err)
	}
	return filepath.Join(dir, "api-chatbot", "prefs.yaml"), nil
}

// LoadPreferences reads path; a missing file yields empty preferences.
func LoadPreferences(path string) (*Preferences, error) {
	p := &Preferences{path: path}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}
	if err := yaml.Unmarshal(raw, &p.data); err != nil {
		return nil, fmt.Errorf("failed to parse preferences: %w", err)
	}
	return p, nil
}

func (p *Preferences) UserID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data.UserID
}

// EnsureUserID returns the persisted id, generating and saving one on first use.
func (p *Preferences) EnsureUserID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.data.UserID != "" {
		return p.data.UserID, nil
	}

	p.data.UserID = newUserID()
	if err := p.save(); err != nil {
		return "", err
	}
	return p.data.UserID, nil
}

func (p *Preferences) Theme() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data.Theme == "" {
		return ThemeLight
	}
	return p.data.Theme
}

func (p *Preferences) SetTheme(theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("unknown theme %q", theme)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.data.Theme = theme
	return p.save()
}

func (p *Preferences) save() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("failed to create preferences dir: %w", err)
	}

	raw, err := yaml.Marshal(&p.data)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("failed to replace preferences: %w", err)
	}
	return nil
}

func newUserID() string {
	return userIDPrefix + strings.ToLower(ulid.Make().String())
}
