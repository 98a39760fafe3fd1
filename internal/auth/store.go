// Package auth persists the client session (api token and user) in a
// durable key-value file under the user's home directory. Presence of the
// token is the sole logged-in signal.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flowdeck/flowdeck/internal/flow"
)

// session is the on-disk shape of ~/.flowdeck/session.json. The two fixed
// keys are api_token and user.
type session struct {
	APIToken string    `json:"api_token,omitempty"`
	User     flow.User `json:"user"`
}

// Store reads and writes the session file.
type Store struct {
	path string
}

// DefaultPath returns ~/.flowdeck/session.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".flowdeck", "session.json"), nil
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted session. A missing file yields an empty
// session, not an error.
func (s *Store) Load() (string, flow.User, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", flow.User{}, nil
		}
		return "", flow.User{}, fmt.Errorf("reading session: %w", err)
	}

	var sess session
	if err := json.Unmarshal(data, &sess); err != nil {
		return "", flow.User{}, fmt.Errorf("parsing session: %w", err)
	}
	return sess.APIToken, sess.User, nil
}

// Save writes the session with restricted permissions.
func (s *Store) Save(token string, user flow.User) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	data, err := json.MarshalIndent(session{APIToken: token, User: user}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Clear removes the session file. A missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}

// Token returns the persisted api token, empty when signed out.
func (s *Store) Token() string {
	token, _, err := s.Load()
	if err != nil {
		return ""
	}
	return token
}
