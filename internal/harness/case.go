package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Case defines one conformance case.
type Case struct {
	// Name uniquely identifies this case and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this case validates.
	Description string `yaml:"description"`

	// SQL is the query in the textual syntax.
	SQL string `yaml:"sql,omitempty"`

	// DSL is the query as a JSON DSL document.
	DSL string `yaml:"dsl,omitempty"`

	// Expect lists the expected outcome. A zero Expect only checks that the
	// query survives the wire round trip.
	Expect Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a case.
type Expect struct {
	// Dump is the expected Dump rendering.
	Dump string `yaml:"dump,omitempty"`

	// Namespace is the expected root namespace.
	Namespace string `yaml:"namespace,omitempty"`

	// Error is a substring the parse or validation error must contain.
	Error string `yaml:"error,omitempty"`

	// SQL is the expected compiled SQLite statement.
	SQL string `yaml:"sql,omitempty"`
}

// LoadCase reads and parses a case YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadCase(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}
	return parseCase(data)
}

// LoadCases loads every *.yaml and *.yml file in dir, ordered by file name.
// Case names must be unique across the directory.
func LoadCases(dir string) ([]*Case, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cases directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	cases := make([]*Case, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		c, err := LoadCase(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		if prev, ok := seen[c.Name]; ok {
			return nil, fmt.Errorf("%s: duplicate case name %q (also in %s)", filepath.Base(p), c.Name, prev)
		}
		seen[c.Name] = filepath.Base(p)
		cases = append(cases, c)
	}
	return cases, nil
}

func parseCase(data []byte) (*Case, error) {
	var c Case
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateCase(&c); err != nil {
		return nil, fmt.Errorf("invalid case: %w", err)
	}
	return &c, nil
}

// validateCase checks that required fields are present and valid.
func validateCase(c *Case) error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Description == "" {
		return fmt.Errorf("description is required")
	}
	switch {
	case c.SQL == "" && c.DSL == "":
		return fmt.Errorf("one of sql or dsl is required")
	case c.SQL != "" && c.DSL != "":
		return fmt.Errorf("sql and dsl are mutually exclusive")
	}
	if c.Expect.Error != "" && (c.Expect.Dump != "" || c.Expect.Namespace != "" || c.Expect.SQL != "") {
		return fmt.Errorf("expect.error cannot be combined with other expectations")
	}
	return nil
}
