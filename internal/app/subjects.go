package app

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shopforge/tokengate/internal/gate"
)

type subjectEntry struct {
	ID      string   `yaml:"id"`
	Enabled bool     `yaml:"enabled"`
	Roles   []string `yaml:"roles"`
}

type subjectsFile struct {
	Subjects []subjectEntry `yaml:"subjects"`
}

// loadDirectory reads the subject roster from the configured YAML file.
// Without a file the directory is empty and every lookup misses.
func loadDirectory(path string) (*gate.StaticDirectory, error) {
	dir := &gate.StaticDirectory{Subjects: map[string]gate.Subject{}}
	if path == "" {
		return dir, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subjects file: %w", err)
	}

	var roster subjectsFile
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("parse subjects file %s: %w", path, err)
	}

	for _, entry := range roster.Subjects {
		if entry.ID == "" {
			return nil, fmt.Errorf("subjects file %s: entry missing id", path)
		}
		dir.Subjects[entry.ID] = gate.Subject{
			ID:      entry.ID,
			Enabled: entry.Enabled,
			Roles:   entry.Roles,
		}
	}
	return dir, nil
}
