package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every schema violation
var ErrInvalidConfig = errors.New("configuration file is not valid")

// ValidationError lists every schema violation of a configuration file
type ValidationError struct {
	File   string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s:\n  - %s", e.File, strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidConfig }

// Validate validates a configuration file against the JSON schema
func Validate(configFile string) error {
	documentLoader, err := loadDocument(configFile)
	if err != nil {
		return err
	}

	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(Schema), documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate schema: %w", err)
	}

	if !result.Valid() {
		verr := &ValidationError{File: configFile}
		for _, desc := range result.Errors() {
			verr.Errors = append(verr.Errors, desc.String())
		}
		return verr
	}

	return nil
}

// loadDocument reads JSON by reference and YAML through a generic value
func loadDocument(configFile string) (gojsonschema.JSONLoader, error) {
	if !isYAML(configFile) {
		abs, err := filepath.Abs(configFile)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		return gojsonschema.NewReferenceLoader("file://" + filepath.ToSlash(abs)), nil
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	var document map[string]interface{}
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if document == nil {
		document = map[string]interface{}{}
	}

	return gojsonschema.NewGoLoader(document), nil
}
