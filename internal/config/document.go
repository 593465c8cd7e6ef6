package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iwvelando/docbuilder/internal/document"
	"gopkg.in/yaml.v3"
)

// LoadDocument reads a document (subsections and answers) from a YAML or
// JSON file. The format is picked from the file extension; anything other
// than .json is read as YAML.
func LoadDocument(path string) (*document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return DecodeDocumentJSON(data)
	}
	return DecodeDocumentYAML(data)
}

// DecodeDocumentJSON decodes a JSON document.
func DecodeDocumentJSON(data []byte) (*document.Document, error) {
	var doc document.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &doc, nil
}

// DecodeDocumentYAML decodes a YAML document. Empty input is an empty document.
func DecodeDocumentYAML(data []byte) (*document.Document, error) {
	var doc document.Document
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &doc, nil
	}
	if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &doc, nil
}

// DecodeDocument decodes data as JSON when it looks like a JSON object and
// as YAML otherwise.
func DecodeDocument(data []byte) (*document.Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return DecodeDocumentJSON(trimmed)
	}
	return DecodeDocumentYAML(trimmed)
}
