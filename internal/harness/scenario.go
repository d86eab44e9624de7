package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted session against the demo features.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description"`

	// Initial seeds the counter, the todos API and the product catalog.
	Initial Initial `yaml:"initial"`

	// Steps run in order. Each step waits for its effects before the next starts.
	Steps []Step `yaml:"steps"`

	// Expect checks the final state summary. Nil fields are not checked.
	Expect *Expect `yaml:"expect,omitempty"`

	// Assertions check the trace and individual feature slices.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Initial is the starting data of a run.
type Initial struct {
	Count    int           `yaml:"count" json:"count"`
	Todos    []SeedTodo    `yaml:"todos,omitempty" json:"todos,omitempty"`
	Products []SeedProduct `yaml:"products,omitempty" json:"products,omitempty"`
}

// SeedTodo is a todo known to the API before the run starts.
type SeedTodo struct {
	ID       string `yaml:"id" json:"id"`
	Title    string `yaml:"title" json:"title"`
	Done     bool   `yaml:"done,omitempty" json:"done,omitempty"`
	Business bool   `yaml:"business,omitempty" json:"business,omitempty"`
	Private  bool   `yaml:"private,omitempty" json:"private,omitempty"`
}

// SeedProduct is a catalog entry loaded before the steps run.
type SeedProduct struct {
	ID    int     `yaml:"id" json:"id"`
	Name  string  `yaml:"name" json:"name"`
	Price float64 `yaml:"price" json:"price"`
}

// Step is one operation. Which fields apply depends on Op.
type Step struct {
	Op      string `yaml:"op"`
	ID      string `yaml:"id,omitempty"`
	Title   string `yaml:"title,omitempty"`
	Done    bool   `yaml:"done,omitempty"`
	Search  string `yaml:"search,omitempty"`
	Product int    `yaml:"product,omitempty"`

	// Fail makes the todos API call of this step fail. The step then
	// must return an error and its speculative update must be reverted.
	Fail bool `yaml:"fail,omitempty"`
}

// Step operations.
const (
	OpIncrement      = "increment"
	OpDecrement      = "decrement"
	OpUndo           = "undo"
	OpCreateTodo     = "create_todo"
	OpUpdateTodo     = "update_todo"
	OpDeleteTodo     = "delete_todo"
	OpSelectTodo     = "select_todo"
	OpFilterTodos    = "filter_todos"
	OpAddToCart      = "add_to_cart"
	OpRemoveFromCart = "remove_from_cart"
	OpSearchProducts = "search_products"
)

// Expect is the expected final state summary.
type Expect struct {
	Count     *int     `yaml:"count,omitempty"`
	TodoIDs   []string `yaml:"todo_ids,omitempty"`
	CartTotal *float64 `yaml:"cart_total,omitempty"`
}

// Assertion checks the trace or one feature slice.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count, final_state.
	Type string `yaml:"type"`

	// Action is an action type (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Actions is the expected relative order of action types (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Count is the exact number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Feature is the AppState key to inspect (final_state).
	Feature string `yaml:"feature,omitempty"`

	// Expect holds expected field values of the slice (final_state).
	// Subset match: only listed fields are compared.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and validates a scenario file. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "step:" vs "steps:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, ordered by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		sc, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Expect == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step) error {
	switch step.Op {
	case OpIncrement, OpDecrement, OpUndo, OpFilterTodos, OpSearchProducts:
	case OpCreateTodo:
		if step.Title == "" {
			return fmt.Errorf("steps[%d]: title is required for %s", index, step.Op)
		}
	case OpUpdateTodo, OpDeleteTodo, OpSelectTodo:
		if step.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for %s", index, step.Op)
		}
	case OpAddToCart, OpRemoveFromCart:
		if step.Product == 0 {
			return fmt.Errorf("steps[%d]: product is required for %s", index, step.Op)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	if step.Fail {
		switch step.Op {
		case OpCreateTodo, OpUpdateTodo, OpDeleteTodo:
		default:
			return fmt.Errorf("steps[%d]: fail is only supported for todo API operations", index)
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Feature == "" {
			return fmt.Errorf("assertions[%d]: feature is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
