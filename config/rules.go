package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/pslima001/govy-function-current-sub002/extract"
	"github.com/pslima001/govy-function-current-sub002/items"
	"github.com/pslima001/govy-function-current-sub002/tables"
)

// ItemsParameter is the parameter id of the consensus item list.
const ItemsParameter = "itens"

//go:embed rules.default.yaml
var defaultRules []byte

//go:embed rules.schema.json
var rulesSchema []byte

// Rules holds the term lists and patterns for every parameter. A loaded
// Rules value is treated as immutable.
type Rules struct {
	Version  int                   `yaml:"version" json:"version"`
	Scalars  []extract.TermRule    `yaml:"scalars" json:"scalars"`
	Sections []extract.SectionRule `yaml:"sections" json:"sections"`
	Lists    []ListParameter       `yaml:"lists" json:"lists"`
	Items    items.Config          `yaml:"items" json:"items"`
}

// ListParameter is a table-driven list parameter with an optional free-text
// fallback. Cap overrides extraction.location_cap when set.
type ListParameter struct {
	Table    tables.ListRule      `yaml:"table" json:"table"`
	Fallback *extract.AddressRule `yaml:"fallback,omitempty" json:"fallback,omitempty"`
	Cap      int                  `yaml:"cap,omitempty" json:"cap,omitempty"`
}

// DefaultRules returns the embedded rules file.
func DefaultRules() []byte {
	return bytes.Clone(defaultRules)
}

// LoadRules reads and validates the rules file at path. An empty path loads
// the embedded defaults.
func LoadRules(path string) (*Rules, error) {
	data := defaultRules
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}
	return ParseRules(data)
}

// ParseRules validates data against the rules schema and decodes it.
func ParseRules(data []byte) (*Rules, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := validateRules(doc); err != nil {
		return nil, err
	}

	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if err := r.checkIDs(); err != nil {
		return nil, err
	}
	return &r, nil
}

// validateRules checks a decoded YAML document against the embedded JSON
// schema. The document goes through JSON first so numbers and maps have
// the shapes the validator expects.
func validateRules(doc any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rules.schema.json", bytes.NewReader(rulesSchema)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("rules.schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("unmarshal rules: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("rules do not match schema: %w", err)
	}
	return nil
}

func (r *Rules) checkIDs() error {
	seen := map[string]bool{ItemsParameter: true}
	check := func(id string) error {
		if seen[id] {
			return fmt.Errorf("rules: duplicate parameter id %q", id)
		}
		seen[id] = true
		return nil
	}
	for _, s := range r.Scalars {
		if err := check(s.ID); err != nil {
			return err
		}
	}
	for _, s := range r.Sections {
		if err := check(s.ID); err != nil {
			return err
		}
	}
	for _, l := range r.Lists {
		if err := check(l.Table.ID); err != nil {
			return err
		}
	}
	return nil
}

// ParameterIDs lists every parameter in registry order, items last.
func (r *Rules) ParameterIDs() []string {
	ids := make([]string, 0, len(r.Scalars)+len(r.Sections)+len(r.Lists)+1)
	for _, s := range r.Scalars {
		ids = append(ids, s.ID)
	}
	for _, s := range r.Sections {
		ids = append(ids, s.ID)
	}
	for _, l := range r.Lists {
		ids = append(ids, l.Table.ID)
	}
	return append(ids, ItemsParameter)
}
