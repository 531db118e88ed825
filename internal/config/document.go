package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/busway/busway/internal/topology"
)

// LoadDocument reads and validates the topology document at path. Tool
// defaults, when non-nil, fill in scope fields the document omits.
func LoadDocument(path string, defaults *Config) (*topology.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading topology document: %w", err)
	}

	doc, err := ParseDocument(data, defaults)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// ParseDocument decodes one YAML topology document. Unknown fields are
// rejected, defaults are applied, and the document is validated: struct
// tags first, then the destination variant rules.
func ParseDocument(data []byte, defaults *Config) (*topology.Document, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var doc topology.Document
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("topology document is empty")
		}
		return nil, fmt.Errorf("error decoding topology document: %w", err)
	}

	if defaults != nil {
		defaults.ApplyScopeDefaults(&doc)
	}
	doc.ApplyDefaults()

	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("topology document invalid: %w", err)
	}
	if err := topology.ValidateDocument(&doc); err != nil {
		return nil, fmt.Errorf("topology document invalid: %w", err)
	}

	return &doc, nil
}
