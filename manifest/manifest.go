// Package manifest handles blox.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a blox.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Serial  Serial  `toml:"serial"`
	Radio   Radio   `toml:"radio"`
	VM      VM      `toml:"vm"`

	// Dir is the directory containing the blox.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Serial configures the host's serial link.
type Serial struct {
	Port string `toml:"port"`
	Baud int    `toml:"baud"`
}

// Radio configures the device radio defaults.
type Radio struct {
	Group   int `toml:"group"`
	Channel int `toml:"channel"`
	Power   int `toml:"power"`
}

// VM configures the device virtual machine.
type VM struct {
	ArenaWords int `toml:"arena-words"`
}

// Defaults for fields the manifest leaves unset.
const (
	DefaultBaud       = 115200
	DefaultChannel    = 7
	DefaultPower      = 6
	DefaultArenaWords = 2500
)

// Load reads a manifest from the given path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	m.Dir = filepath.Dir(path)
	m.applyDefaults()
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad searches dir and its parents for blox.toml. Returns nil
// with no error when none is found.
func FindAndLoad(dir string) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(abs, "blox.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return nil, nil
		}
		abs = parent
	}
}

func (m *Manifest) applyDefaults() {
	if m.Serial.Baud == 0 {
		m.Serial.Baud = DefaultBaud
	}
	if m.Radio.Channel == 0 {
		m.Radio.Channel = DefaultChannel
	}
	if m.Radio.Power == 0 {
		m.Radio.Power = DefaultPower
	}
	if m.VM.ArenaWords == 0 {
		m.VM.ArenaWords = DefaultArenaWords
	}
}

func (m *Manifest) validate() error {
	if m.Radio.Group < 0 || m.Radio.Group > 255 {
		return fmt.Errorf("radio group %d out of range 0-255", m.Radio.Group)
	}
	if m.Radio.Channel < 0 || m.Radio.Channel > 83 {
		return fmt.Errorf("radio channel %d out of range 0-83", m.Radio.Channel)
	}
	if m.Radio.Power < 0 || m.Radio.Power > 7 {
		return fmt.Errorf("radio power %d out of range 0-7", m.Radio.Power)
	}
	if m.VM.ArenaWords < 100 {
		return fmt.Errorf("arena-words %d too small (minimum 100)", m.VM.ArenaWords)
	}
	return nil
}
