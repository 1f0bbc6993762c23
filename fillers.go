package main

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed fillers.yaml
var defaultFillersYAML []byte

type fillerFile struct {
	Fillers []string `yaml:"fillers"`
}

// DefaultFillers returns the built-in decoy vocabulary.
func DefaultFillers() []string {
	words, err := parseFillers(defaultFillersYAML)
	if err != nil {
		panic("fillers: embedded vocabulary is invalid: " + err.Error())
	}
	return words
}

// LoadFillers reads a filler vocabulary from a YAML file. An empty path
// returns the built-in vocabulary.
func LoadFillers(path string) ([]string, error) {
	if path == "" {
		return DefaultFillers(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read filler file: %w", err)
	}
	words, err := parseFillers(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return words, nil
}

func parseFillers(data []byte) ([]string, error) {
	var f fillerFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse filler YAML: %w", err)
	}
	if len(f.Fillers) < fillerCount {
		return nil, fmt.Errorf("need at least %d fillers, got %d", fillerCount, len(f.Fillers))
	}
	return f.Fillers, nil
}
