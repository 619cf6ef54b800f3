// Package power persists the one flag that survives a sleep cycle and
// provides the ways the device can sleep.
package power

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// WakeReason says how the current boot started.
type WakeReason string

const (
	// WakeCold is a power-on or restart with no sleep record.
	WakeCold WakeReason = "COLD_BOOT"
	// WakeDock is a wake from dock sleep.
	WakeDock WakeReason = "DOCK"
)

// Boot describes how this boot started.
type Boot struct {
	Reason       WakeReason
	WasConnected bool
}

// record is the on-disk form of the flag.
type record struct {
	WasConnected bool `yaml:"was_connected"`
}

// FlagStore persists wasConnected across a sleep cycle in a small YAML file.
// A present file means the last run ended in dock sleep.
type FlagStore struct {
	Path string
}

// NewFlagStore creates a store at path.
func NewFlagStore(path string) *FlagStore {
	return &FlagStore{Path: path}
}

// Save writes the flag immediately before sleep entry.
func (s *FlagStore) Save(wasConnected bool) error {
	data, err := yaml.Marshal(record{WasConnected: wasConnected})
	if err != nil {
		return fmt.Errorf("marshal flag: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write flag: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename flag: %w", err)
	}
	return nil
}

// Consume reads and removes the flag. No file means a cold boot.
// An unreadable file still counts as a dock wake.
func (s *FlagStore) Consume() (Boot, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Boot{Reason: WakeCold}, nil
	}
	if err != nil {
		return Boot{Reason: WakeCold}, fmt.Errorf("read flag: %w", err)
	}

	boot := Boot{Reason: WakeDock}
	var rec record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		err = fmt.Errorf("parse flag: %w", err)
		if rmErr := os.Remove(s.Path); rmErr != nil {
			return boot, fmt.Errorf("%v; remove flag: %w", err, rmErr)
		}
		return boot, err
	}
	boot.WasConnected = rec.WasConnected

	if err := os.Remove(s.Path); err != nil {
		return boot, fmt.Errorf("remove flag: %w", err)
	}
	return boot, nil
}
