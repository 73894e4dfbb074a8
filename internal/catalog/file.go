// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/chapter-extract/pkg/types"
)

//go:embed schema.json
var schemaJSON []byte

// file is the on-disk catalog layout:
//
//	title: PRACTITIONER'S TRACK - EXTRACTED CHAPTERS
//	jobs:
//	  - id: ch01_introduction
//	    start: 21
//	    end: 38
//	    description: Introduction, Amdahl's Law
type file struct {
	Title string      `yaml:"title"`
	Jobs  []types.Job `yaml:"jobs"`
}

// LoadFile reads a YAML catalog, checks it against the catalog schema, and
// validates the job invariants. Every failure is a *ConfigError.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Source: path, Err: fmt.Errorf("reading catalog: %w", err)}
	}
	return Parse(path, data)
}

// Parse decodes catalog YAML. source names the data in error messages.
func Parse(source string, data []byte) (*Catalog, error) {
	if err := validateSchema(data); err != nil {
		return nil, &ConfigError{Source: source, Err: err}
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &ConfigError{Source: source, Err: fmt.Errorf("parsing catalog: %w", err)}
	}

	c, err := New(f.Jobs)
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) {
			ce.Source = source
		}
		return nil, err
	}
	c.title = f.Title
	return c, nil
}

// validateSchema round-trips the YAML document through JSON so the schema
// validator sees JSON-native types.
func validateSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing catalog: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("catalog.json", bytes.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("loading catalog schema: %w", err)
	}
	schema, err := compiler.Compile("catalog.json")
	if err != nil {
		return fmt.Errorf("compiling catalog schema: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}
