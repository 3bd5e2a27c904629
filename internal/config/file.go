package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"
)

// fileSchema validates the YAML config file before it is decoded, so a
// malformed file fails with a field-level message instead of a zero value.
const fileSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "path": {"type": "string", "minLength": 1},
    "architecture": {"type": "string"},
    "repositories": {
      "type": "object",
      "additionalProperties": {"type": "boolean"}
    },
    "mirrors": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    },
    "packages": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    },
    "skipSignatures": {"type": "boolean"},
    "signKey": {"type": "string"}
  }
}`

// fileConfig mirrors the YAML config file shape.
type fileConfig struct {
	Path           string          `yaml:"path"`
	Architecture   string          `yaml:"architecture"`
	Repositories   map[string]bool `yaml:"repositories"`
	Mirrors        []string        `yaml:"mirrors"`
	Packages       []string        `yaml:"packages"`
	SkipSignatures bool            `yaml:"skipSignatures"`
	SignKey        string          `yaml:"signKey"`
}

// LoadFile reads and validates a YAML config file and folds it into a
// Config. Values absent from the file keep their zero values so the caller
// can layer flag defaults on top.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := validateAgainstSchema(data); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	return &Config{
		Path:           fc.Path,
		Architecture:   fc.Architecture,
		Repositories:   fc.Repositories,
		Mirrors:        fc.Mirrors,
		Packages:       fc.Packages,
		SkipSignatures: fc.SkipSignatures,
		SignKey:        fc.SignKey,
	}, nil
}

func validateAgainstSchema(data []byte) error {
	jsonData, err := sigsyaml.YAMLToJSON(data)
	if err != nil {
		return fmt.Errorf("converting to JSON for validation: %w", err)
	}

	schema, err := jsonschema.CompileString("config.schema.json", fileSchema)
	if err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("decoding config document: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}

// ParseMirrorlist reads a pacman-style mirrorlist: "Server = <template>"
// lines, '#' comments and blank lines. Templates are returned in file order
// since mirror priority is positional.
func ParseMirrorlist(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading mirrorlist: %w", err)
	}
	defer file.Close()

	var mirrors []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(key) != "Server" {
			continue
		}
		if template := strings.TrimSpace(value); template != "" {
			mirrors = append(mirrors, template)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading mirrorlist: %w", err)
	}
	return mirrors, nil
}

// ParsePackageList reads a package-list file: one specification token per
// line, '#' comments and blank lines ignored.
func ParsePackageList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading package list: %w", err)
	}

	var packages []string
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		token := strings.TrimSpace(string(line))
		if token == "" || strings.HasPrefix(token, "#") {
			continue
		}
		packages = append(packages, token)
	}
	return packages, nil
}
