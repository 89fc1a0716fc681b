package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ICSSource describes a single ICS subscription that configurations with the
// ics provider reference by ID.
type ICSSource struct {
	ID   string `yaml:"id" json:"id"`
	URL  string `yaml:"url" json:"url"`
	Name string `yaml:"name" json:"name"`
}

type Sources struct {
	ICS []ICSSource `yaml:"ics" json:"ics"`
}

// Lookup returns the URL registered for id.
func (s *Sources) Lookup(id string) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, src := range s.ICS {
		if src.ID == id {
			return src.URL, true
		}
	}
	return "", false
}

// LoadSources reads the YAML calendar-source file. An empty path yields an
// empty set.
func LoadSources(path string) (*Sources, error) {
	if path == "" {
		return &Sources{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSources(data)
}

func ParseSources(data []byte) (*Sources, error) {
	var s Sources
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(s.ICS))
	for i := range s.ICS {
		src := &s.ICS[i]
		src.ID = strings.TrimSpace(src.ID)
		src.URL = strings.TrimSpace(src.URL)
		if src.ID == "" {
			return nil, errors.New("ics source id is empty")
		}
		if seen[src.ID] {
			return nil, fmt.Errorf("duplicate ics source id %q", src.ID)
		}
		seen[src.ID] = true
		if !strings.HasPrefix(src.URL, "http://") && !strings.HasPrefix(src.URL, "https://") {
			return nil, fmt.Errorf("ics source %q: url must be http(s)", src.ID)
		}
		if src.Name == "" {
			src.Name = src.ID
		}
	}
	return &s, nil
}
