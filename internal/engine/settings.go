package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Settings is a saved engine configuration (.digproj). Only parameters are
// persisted; mask snapshots and other full project state stay with the GUI.
type Settings struct {
	Version  int       `json:"version"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	// ImagePath is the source scan, relative to the settings file.
	ImagePath string `json:"image,omitempty"`

	// Threshold is the binarization grey level; 0 means estimate with Otsu.
	Threshold uint8 `json:"threshold"`

	Config Config `json:"config"`
}

// NewSettings creates settings with the engine defaults.
func NewSettings(name string) *Settings {
	now := time.Now()
	return &Settings{
		Version:  1,
		Name:     name,
		Created:  now,
		Modified: now,
		Config:   DefaultConfig(),
	}
}

// LoadSettings reads settings from a file and validates the contained
// configuration.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := s.Config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}

// Save writes the settings to a file, stamping the modification time.
func (s *Settings) Save(path string) error {
	s.Modified = time.Now()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
