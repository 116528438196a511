package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LocalState is the browser-localStorage equivalent: the remembered
// credential and the last-bound session id. It is cleared wholesale on
// logout; the session id alone is dropped when the server stops recognizing
// it.
type LocalState struct {
	Token         string `yaml:"token"`
	Nickname      string `yaml:"nickname"`
	LastSessionID string `yaml:"lastSessionId"`
}

// StateFile persists LocalState as a YAML file.
type StateFile struct {
	path string
}

// NewStateFile creates a state file handle at path.
func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

// DefaultStatePath resolves ~/.gptclone/state.yaml.
func DefaultStatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".gptclone", "state.yaml"), nil
}

// Load reads the persisted state. A missing file is an empty state, not an
// error.
func (f *StateFile) Load() (LocalState, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return LocalState{}, nil
		}
		return LocalState{}, fmt.Errorf("failed to read state file: %w", err)
	}

	var state LocalState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return LocalState{}, fmt.Errorf("failed to parse state file: %w", err)
	}
	return state, nil
}

// Save writes the state, creating the parent directory as needed.
func (f *StateFile) Save(state LocalState) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// Clear removes the state file entirely.
func (f *StateFile) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}
