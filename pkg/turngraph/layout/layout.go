package layout

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/turngraph/pkg/turngraph"
)

// Definition is a parsed layout file.
type Definition struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Entry       string    `yaml:"entry"`
	Terminals   []string  `yaml:"terminals"`
	Merge       string    `yaml:"merge,omitempty"`
	Acyclic     bool      `yaml:"acyclic,omitempty"`
	MaxSteps    int       `yaml:"max_steps,omitempty"`
	Steps       []StepDef `yaml:"steps"`
}

// StepDef declares one step of a layout.
type StepDef struct {
	// Name is the step name in the graph.
	Name string `yaml:"name"`
	// Use is the catalog entry; defaults to Name. Ignored for rule decisions.
	Use string `yaml:"use,omitempty"`
	// Kind optionally asserts "action" or "decision".
	Kind        string            `yaml:"kind,omitempty"`
	Description string            `yaml:"description,omitempty"`
	Writes      []string          `yaml:"writes,omitempty"`
	Next        string            `yaml:"next,omitempty"`
	Routes      map[string]string `yaml:"routes,omitempty"`
	Rules       []RuleDef         `yaml:"rules,omitempty"`
	Otherwise   string            `yaml:"otherwise,omitempty"`
}

// RuleDef routes to Route when the When expression holds.
type RuleDef struct {
	When  string `yaml:"when"`
	Route string `yaml:"route"`
}

// Parse decodes a YAML layout. Unknown keys are rejected.
func Parse(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("layout: empty document")
		}
		return nil, fmt.Errorf("layout: parse: %w", err)
	}
	return &def, nil
}

// Load reads and parses a layout file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("layout: read: %w", err)
	}
	return Parse(data)
}

// Marshal encodes the definition back to YAML.
func (d *Definition) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunOptions returns the run options the layout asks for.
func (d *Definition) RunOptions() []turngraph.RunOption {
	if d.MaxSteps > 0 {
		return []turngraph.RunOption{turngraph.WithMaxSteps(d.MaxSteps)}
	}
	return nil
}
