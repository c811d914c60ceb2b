// Package config holds the tunable detection geometry shared between the
// processing loop and the control server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Settings contains the detection parameters: the traffic-light region of
// interest in frame coordinates, the three lamp centers relative to the ROI
// top-left corner, the shared sampling radius and the brightness threshold.
//
// JSON field names match the persisted config.json record written by the web
// configuration page. Unknown keys in the record are ignored.
type Settings struct {
	ROIX      int `json:"master_roi_x"`
	ROIY      int `json:"master_roi_y"`
	ROIWidth  int `json:"master_roi_width"`
	ROIHeight int `json:"master_roi_height"`

	RedX    int `json:"red_x"`
	RedY    int `json:"red_y"`
	YellowX int `json:"yellow_x"`
	YellowY int `json:"yellow_y"`
	GreenX  int `json:"green_x"`
	GreenY  int `json:"green_y"`

	LampRadius          int `json:"lamp_radius"`
	BrightnessThreshold int `json:"min_brightness_threshold"`
}

// Defaults returns the factory settings used until a config file is loaded.
func Defaults() Settings {
	return Settings{
		ROIX:                385,
		ROIY:                207,
		ROIWidth:            82,
		ROIHeight:           315,
		RedX:                42,
		RedY:                33,
		YellowX:             40,
		YellowY:             154,
		GreenX:              40,
		GreenY:              251,
		LampRadius:          37,
		BrightnessThreshold: 80,
	}
}

// Store is the shared, mutable settings instance. All reads and writes go
// through whole-struct copies under a single mutex, so a reader can never
// observe fields from two different updates.
type Store struct {
	mu  sync.Mutex
	cur Settings
}

// NewStore creates a Store seeded with the given settings.
func NewStore(s Settings) *Store {
	return &Store{cur: s}
}

// Snapshot returns a copy of the current settings.
func (s *Store) Snapshot() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Replace atomically replaces all settings.
func (s *Store) Replace(next Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = next
}

// LoadFile merges the JSON record at path into the store. Keys present in
// the record overwrite the corresponding field; missing keys keep their
// current in-memory value. On a read or parse error the store is left
// entirely untouched and the error is returned.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := s.cur
	if err := json.Unmarshal(data, &merged); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	s.cur = merged
	return nil
}

// WriteRaw persists a configuration record verbatim, world-readable so the
// static configuration page can fetch it back.
func WriteRaw(path string, body []byte) error {
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
