package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceDef describes one candidate feed endpoint in sources.yaml.
// Each feed is a black-box producer of raw listing tuples; nothing in here
// knows how the feed extracts them from retailer pages.
type SourceDef struct {
	Name              string `yaml:"name"`
	URL               string `yaml:"url"`
	Retailer          string `yaml:"retailer"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type sourcesFile struct {
	Sources []SourceDef `yaml:"sources"`
}

// LoadSources reads source definitions from a YAML file. A missing file is
// not an error: the engine still serves reads and manual reconciliation.
func LoadSources(path string) ([]SourceDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sources file %s: %w", path, err)
	}

	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sources file %s: %w", path, err)
	}

	for i, s := range f.Sources {
		if s.Name == "" || s.URL == "" {
			return nil, fmt.Errorf("sources file %s: entry %d missing name or url", path, i)
		}
	}
	return f.Sources, nil
}
