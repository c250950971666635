package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/ordered/internal/order"
)

// StepResult records what one step did.
type StepResult struct {
	Op        string
	Scope     string
	ID        string
	Direction string
	// Added holds the orders assigned by an add step, in input order.
	Added []order.Entry
	// Moved is set by move steps.
	Moved bool
	// Writes is set by compact steps.
	Writes int
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool

	// Backend is the backend the scenario ran against.
	Backend string

	// Steps holds one entry per executed step.
	Steps []StepResult

	// Final maps every non-empty scope to its entries in ascending order.
	Final map[string][]order.Entry

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Final:  make(map[string][]order.Entry),
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Sequence returns the ids of scope in final order.
func (r *Result) Sequence(scope string) []string {
	entries := r.Final[scope]
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

// Run executes a scenario against a fresh backend of the scenario's kind.
//
// A returned error means the scenario could not run (store failure,
// unknown record). Unmet expectations are reported through Result.
func Run(scenario *Scenario) (*Result, error) {
	backend, err := NewBackend(scenario.Backend)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	return RunOn(context.Background(), backend, scenario)
}

// RunOn executes a scenario against the given backend.
func RunOn(ctx context.Context, backend Backend, scenario *Scenario) (*Result, error) {
	orderer := order.New(backend.Store())
	result := NewResult()
	result.Backend = backend.Name()

	for i, step := range scenario.Steps {
		sr, err := runStep(ctx, backend, orderer, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
		checkStep(result, i, step, sr)
		result.Steps = append(result.Steps, sr)
	}

	scopes, err := backend.Scopes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scopes: %w", err)
	}
	for _, scope := range scopes {
		entries, err := backend.Store().Entries(ctx, scope)
		if err != nil {
			return nil, fmt.Errorf("read scope %q: %w", scope, err)
		}
		result.Final[scope] = entries

		if !scenario.AllowGaps {
			var gap *order.GapError
			if err := order.Check(ctx, backend.Store(), scope); errors.As(err, &gap) {
				result.AddError("%v", gap)
			} else if err != nil {
				return nil, err
			}
		}
	}

	for _, scope := range sortedKeys(scenario.Expect) {
		want := scenario.Expect[scope]
		got := result.Sequence(scope)
		if !slices.Equal(want, got) {
			result.AddError("scope %q: expected %v, got %v", scope, want, got)
		}
	}

	return result, nil
}

func runStep(ctx context.Context, backend Backend, orderer *order.Orderer, step Step) (StepResult, error) {
	sr := StepResult{Op: step.Op, Scope: step.Scope, ID: step.ID, Direction: step.Direction}

	switch step.Op {
	case OpAdd:
		ids := step.IDs
		if step.ID != "" {
			ids = append([]string{step.ID}, ids...)
		}
		for _, id := range ids {
			o, err := backend.Add(ctx, step.Scope, id)
			if err != nil {
				return sr, err
			}
			sr.Added = append(sr.Added, order.Entry{ID: id, Order: o})
		}

	case OpSeed:
		if err := backend.Seed(ctx, step.Scope, step.Orders); err != nil {
			return sr, err
		}

	case OpMove:
		dir, err := order.ParseDirection(step.Direction)
		if err != nil {
			return sr, err
		}
		rec, err := backend.Record(ctx, step.ID)
		if err != nil {
			return sr, err
		}
		sr.Scope = rec.OrderScope()
		if sr.Moved, err = orderer.Move(ctx, rec, dir); err != nil {
			return sr, err
		}

	case OpCompact:
		writes, err := orderer.Compact(ctx, step.Scope)
		if err != nil {
			return sr, err
		}
		sr.Writes = writes

	case OpDelete:
		if err := backend.Delete(ctx, step.ID); err != nil {
			return sr, err
		}

	default:
		return sr, fmt.Errorf("unknown op %q", step.Op)
	}

	return sr, nil
}

// checkStep compares a step's outcome with its optional expectations.
func checkStep(result *Result, index int, step Step, sr StepResult) {
	if step.Moved != nil && *step.Moved != sr.Moved {
		result.AddError("step %d: expected moved=%t, got %t", index+1, *step.Moved, sr.Moved)
	}
	if step.Writes != nil && *step.Writes != sr.Writes {
		result.AddError("step %d: expected %d writes, got %d", index+1, *step.Writes, sr.Writes)
	}
	if step.Order != nil && len(sr.Added) == 1 && *step.Order != sr.Added[0].Order {
		result.AddError("step %d: expected order %d, got %d", index+1, *step.Order, sr.Added[0].Order)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
