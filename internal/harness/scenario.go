package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ordered/internal/order"
)

// Scenario defines an ordering scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Backend selects the record store: "memory" (default) or "sqlite".
	Backend string `yaml:"backend,omitempty"`

	// Steps run in order against a fresh backend.
	Steps []Step `yaml:"steps"`

	// Expect maps a scope to its expected ids in ascending order.
	Expect map[string][]string `yaml:"expect"`

	// AllowGaps skips the final contiguity check.
	AllowGaps bool `yaml:"allow_gaps,omitempty"`
}

// Step operations.
const (
	OpAdd     = "add"
	OpSeed    = "seed"
	OpMove    = "move"
	OpCompact = "compact"
	OpDelete  = "delete"
)

// Step is a single operation in a scenario.
type Step struct {
	// Op is one of add, seed, move, compact, delete.
	Op string `yaml:"op"`

	// Scope is required by add, seed and compact.
	Scope string `yaml:"scope,omitempty"`

	// ID names the record for move and delete, or a single record for add.
	ID string `yaml:"id,omitempty"`

	// IDs adds several records in sequence (add only).
	IDs []string `yaml:"ids,omitempty"`

	// Direction is "up" or "down" (move only).
	Direction string `yaml:"direction,omitempty"`

	// Orders sets explicit order values, creating records as needed (seed only).
	Orders map[string]int64 `yaml:"orders,omitempty"`

	// Moved is the expected outcome of a move. Optional.
	Moved *bool `yaml:"moved,omitempty"`

	// Writes is the expected number of compaction writes. Optional.
	Writes *int `yaml:"writes,omitempty"`

	// Order is the expected order assigned to a single added record. Optional.
	Order *int64 `yaml:"order,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Backend {
	case "", BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q: must be %s or %s", s.Backend, BackendMemory, BackendSQLite)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Expect) == 0 {
		return fmt.Errorf("expect is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates a single step based on its op.
func validateStep(index int, st *Step) error {
	switch st.Op {
	case OpAdd:
		if st.ID == "" && len(st.IDs) == 0 {
			return fmt.Errorf("steps[%d]: id or ids is required for add", index)
		}
		if st.Order != nil && len(st.IDs) > 0 {
			return fmt.Errorf("steps[%d]: order expectation needs a single id", index)
		}
	case OpSeed:
		if len(st.Orders) == 0 {
			return fmt.Errorf("steps[%d]: orders is required for seed", index)
		}
		for id, o := range st.Orders {
			if o < 0 {
				return fmt.Errorf("steps[%d]: order for %s must be non-negative", index, id)
			}
		}
	case OpMove:
		if st.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for move", index)
		}
		if _, err := order.ParseDirection(st.Direction); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	case OpCompact:
	case OpDelete:
		if st.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for delete", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	return nil
}
