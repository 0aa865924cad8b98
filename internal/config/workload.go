package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	lberrors "github.com/systmms/lakebench/internal/errors"
)

// workloadSchema validates workload files before any field is interpreted,
// so a typo'd key fails with every violation listed rather than a zero value
// surfacing mid-benchmark.
const workloadSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "queries"],
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "concurrency": {"type": "integer", "minimum": 1, "maximum": 1000},
    "iterations": {"type": "integer", "minimum": 1},
    "queries": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "sql"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "sql": {"type": "string", "minLength": 1},
          "args": {
            "type": "array",
            "items": {"type": ["string", "number", "boolean", "null"]}
          }
        }
      }
    },
    "proof": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "queries": {"type": "integer", "minimum": 1, "maximum": 1000},
        "sleep": {"type": "string", "minLength": 2},
        "min_speedup": {"type": "number", "exclusiveMinimum": 0}
      }
    }
  }
}`

// Query is a single named statement executed by the benchmark runner.
// Args are bound as query parameters; the schema limits them to scalars.
type Query struct {
	Name string        `yaml:"name" json:"name"`
	SQL  string        `yaml:"sql" json:"sql"`
	Args []interface{} `yaml:"args,omitempty" json:"args,omitempty"`
}

// Duration decodes Go duration syntax ("500ms", "2s") from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// ProofSettings tunes the concurrency proof when a workload file carries
// one. Zero fields fall back to the verify command's flag defaults.
type ProofSettings struct {
	Queries    int      `yaml:"queries,omitempty" json:"queries,omitempty"`
	Sleep      Duration `yaml:"sleep,omitempty" json:"sleep,omitempty"`
	MinSpeedup float64  `yaml:"min_speedup,omitempty" json:"min_speedup,omitempty"`
}

// Workload describes one benchmark run: which queries to execute, how many
// workers issue them, and how many rounds each worker performs.
type Workload struct {
	Name        string         `yaml:"name" json:"name"`
	Concurrency int            `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
	Iterations  int            `yaml:"iterations,omitempty" json:"iterations,omitempty"`
	Queries     []Query        `yaml:"queries" json:"queries"`
	Proof       *ProofSettings `yaml:"proof,omitempty" json:"proof,omitempty"`
}

// DefaultWorkload is used when no workload file is supplied. The statements
// are Postgres metadata probes that run against an empty database.
func DefaultWorkload() Workload {
	return Workload{
		Name:        "default",
		Concurrency: 10,
		Iterations:  20,
		Queries: []Query{
			{Name: "select_one", SQL: "SELECT 1"},
			{Name: "now", SQL: "SELECT now()"},
			{Name: "count_tables", SQL: "SELECT count(*) FROM pg_tables"},
			{Name: "version", SQL: "SELECT version()"},
		},
	}
}

// PortableWorkload avoids dialect-specific statements; compare runs it when
// the engines under test speak different SQL dialects.
func PortableWorkload() Workload {
	return Workload{
		Name:        "portable",
		Concurrency: 10,
		Iterations:  20,
		Queries: []Query{
			{Name: "select_one", SQL: "SELECT 1"},
			{Name: "current_timestamp", SQL: "SELECT CURRENT_TIMESTAMP"},
			{Name: "version", SQL: "SELECT VERSION()"},
		},
	}
}

// LoadWorkload reads and validates a workload file.
func LoadWorkload(path string) (Workload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Workload{}, lberrors.UserError{
			Message:    fmt.Sprintf("Cannot read workload file: %s", path),
			Details:    err.Error(),
			Suggestion: "Check the path, or omit --workload to use the built-in workload",
			Err:        err,
		}
	}

	// Validate the raw document, not the decoded struct: decoding would
	// silently drop unknown keys before the schema could reject them.
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Workload{}, lberrors.ConfigError{
			Field:      path,
			Message:    fmt.Sprintf("invalid YAML: %v", err),
			Suggestion: "Fix the YAML syntax error above",
		}
	}
	if err := validateWorkload(path, doc); err != nil {
		return Workload{}, err
	}

	var w Workload
	if err := yaml.Unmarshal(data, &w); err != nil {
		return Workload{}, lberrors.ConfigError{
			Field:   path,
			Message: fmt.Sprintf("invalid YAML: %v", err),
		}
	}
	if w.Concurrency == 0 {
		w.Concurrency = 10
	}
	if w.Iterations == 0 {
		w.Iterations = 20
	}
	return w, nil
}

func validateWorkload(path string, doc interface{}) error {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to convert workload for validation: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(workloadSchema)
	documentLoader := gojsonschema.NewBytesLoader(jsonData)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var violations []string
		for _, desc := range result.Errors() {
			violations = append(violations, desc.String())
		}
		return lberrors.ConfigError{
			Field:      path,
			Message:    "workload validation failed:\n  - " + strings.Join(violations, "\n  - "),
			Suggestion: "Each query needs a name and sql; concurrency must be 1-1000",
		}
	}
	return nil
}
