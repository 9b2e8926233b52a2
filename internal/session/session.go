// Package session remembers which vault user is logged in between
// invocations. The session lives in ~/.config/snippyvault/session.toml.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// ErrNotLoggedIn indicates that no session file or username is present.
var ErrNotLoggedIn = errors.New("session: not logged in")

// Session is the persisted login state.
type Session struct {
	Username   string    `toml:"username"`
	APIBaseURL string    `toml:"api_base_url,omitempty"`
	LoggedInAt time.Time `toml:"logged_in_at"`
}

// Load reads the session at path. A missing or unreadable file, or one
// without a username, yields ErrNotLoggedIn.
func Load(path string) (Session, error) {
	resolved, err := expandPath(path)
	if err != nil {
		return Session{}, err
	}

	raw, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, ErrNotLoggedIn
		}
		return Session{}, fmt.Errorf("read session: %w", err)
	}

	var current Session
	if err := toml.Unmarshal(raw, &current); err != nil {
		return Session{}, ErrNotLoggedIn
	}
	current.Username = strings.TrimSpace(current.Username)
	if current.Username == "" {
		return Session{}, ErrNotLoggedIn
	}
	return current, nil
}

// Save writes the session, creating directories as needed.
func Save(path string, current Session) error {
	if strings.TrimSpace(current.Username) == "" {
		return ErrNotLoggedIn
	}
	resolved, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	encoded, err := toml.Marshal(current)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(resolved, encoded, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the session file. Clearing a missing session is not an error.
func Clear(path string) error {
	resolved, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(resolved); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("session path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
