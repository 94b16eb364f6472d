package areas

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Spec is one configured area. Ids are positions in the file, assigned at
// load and never reused.
type Spec struct {
	Name       string `yaml:"area" json:"area"`
	Background string `yaml:"background" json:"background"`
	BGLock     bool   `yaml:"bglock" json:"bglock"`
	Casing     bool   `yaml:"casing" json:"casing"`
}

type Config struct {
	Areas []Spec
}

const schemaText = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["area", "background"],
    "additionalProperties": false,
    "properties": {
      "area": {"type": "string", "minLength": 1},
      "background": {"type": "string", "minLength": 1},
      "bglock": {"type": "boolean"},
      "casing": {"type": "boolean"}
    }
  }
}`

var schema = jsonschema.MustCompileString("areas.schema.json", schemaText)

// Load reads areas.yaml. An empty path yields a single default area.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return defaults(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	if err := validateSchema(b); err != nil {
		return Config{}, fmt.Errorf("areas.yaml: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg.Areas); err != nil {
		return Config{}, fmt.Errorf("areas.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("areas.yaml: %w", err)
	}
	return cfg, nil
}

// validateSchema checks the document shape. The yaml tree is round-tripped
// through JSON so the validator sees JSON-native value types.
func validateSchema(b []byte) error {
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return schema.Validate(v)
}

func defaults() Config {
	return Config{Areas: []Spec{{Name: "Basement", Background: "gs4"}}}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	for i := range c.Areas {
		c.Areas[i].Name = strings.TrimSpace(c.Areas[i].Name)
		c.Areas[i].Background = strings.TrimSpace(c.Areas[i].Background)
	}
}

func (c Config) Validate() error {
	if len(c.Areas) == 0 {
		return fmt.Errorf("areas must not be empty")
	}
	seen := map[string]bool{}
	for i, a := range c.Areas {
		if a.Name == "" {
			return fmt.Errorf("areas[%d] name must not be empty", i)
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate area name: %s", a.Name)
		}
		seen[a.Name] = true
		if a.Background == "" {
			return fmt.Errorf("area %s background must not be empty", a.Name)
		}
	}
	return nil
}

func (c Config) Names() []string {
	out := make([]string, 0, len(c.Areas))
	for _, a := range c.Areas {
		out = append(out, a.Name)
	}
	return out
}
