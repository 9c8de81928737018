package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	sessionFile = "session.json"
)

// SessionState represents the persisted chat session.
// It records which vendor conversation the user was last talking in so a new
// chat invocation can resume it instead of starting fresh.
type SessionState struct {
	// Vendor is the vendor name the conversation belongs to.
	Vendor string `json:"vendor"`

	// ConversationID is the server-side conversation identifier.
	ConversationID string `json:"conversation_id"`

	// UpdatedAt is when the session was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// LoadSessionState loads the session state from a target .weft/session.json.
// Returns nil, nil if no session state exists (fresh conversation state).
// If overrideDir is non-empty, it is used instead of the default ~/.weft/ location.
func (m *Manager) LoadSessionState(overrideDir string) (*SessionState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, sessionFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session state: %w", err)
	}

	state := &SessionState{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing session state: %w", err)
	}

	return state, nil
}

// SaveSession persists the session state to a target .weft/session.json.
func (m *Manager) SaveSession(state *SessionState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil session state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	state.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}

	path := filepath.Join(dir, sessionFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}

	return nil
}

// ClearSession removes the session state file.
// This resets the state so the next chat session starts a new conversation.
// If overrideDir is non-empty, it is used instead of the default ~/.weft/ location.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearSession(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, sessionFile)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing session state: %w", err)
	}

	return nil
}
