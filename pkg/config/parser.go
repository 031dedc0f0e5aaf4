package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseConfig reads and parses a configuration file. Files ending in .yaml or
// .yml are read as YAML, everything else as JSON.
func ParseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	var config Config
	if isYAML(configFile) {
		err = yaml.Unmarshal(data, &config)
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Load validates configFile against the schema and parses it
func Load(configFile string) (*Config, error) {
	if err := Validate(configFile); err != nil {
		return nil, err
	}
	return ParseConfig(configFile)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
