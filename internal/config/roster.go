package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/susu3304/warikan/internal/ledger"
)

type rosterFile struct {
	Participants []ledger.Participant `yaml:"participants"`
}

// LoadRoster reads a YAML roster. An empty path yields the default roster.
func LoadRoster(path string) (*ledger.Roster, error) {
	if path == "" {
		return ledger.DefaultRoster(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}

	var f rosterFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}

	roster, err := ledger.NewRoster(f.Participants)
	if err != nil {
		return nil, fmt.Errorf("invalid roster: %w", err)
	}
	return roster, nil
}
