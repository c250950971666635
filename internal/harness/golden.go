package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result as stable text for golden comparison.
//
// Format:
//
//	scenario: <name>
//	backend: <backend>
//	steps:
//	  1. add s A=0 B=1
//	  2. move C up: moved
//	  3. compact s: 2 writes
//	final:
//	  s: A=0 C=1 B=2
//	pass: true
func Snapshot(name string, r *Result) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "scenario: %s\n", name)
	fmt.Fprintf(&b, "backend: %s\n", r.Backend)

	b.WriteString("steps:\n")
	for i, st := range r.Steps {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, describeStep(st))
	}

	b.WriteString("final:\n")
	for _, scope := range sortedKeys(r.Final) {
		parts := make([]string, len(r.Final[scope]))
		for i, e := range r.Final[scope] {
			parts[i] = fmt.Sprintf("%s=%d", e.ID, e.Order)
		}
		fmt.Fprintf(&b, "  %s: %s\n", scope, strings.Join(parts, " "))
	}

	fmt.Fprintf(&b, "pass: %t\n", r.Pass)
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "error: %s\n", e)
	}
	return []byte(b.String())
}

func describeStep(st StepResult) string {
	switch st.Op {
	case OpAdd:
		parts := make([]string, len(st.Added))
		for i, e := range st.Added {
			parts[i] = fmt.Sprintf("%s=%d", e.ID, e.Order)
		}
		return fmt.Sprintf("add %s %s", st.Scope, strings.Join(parts, " "))
	case OpSeed:
		return fmt.Sprintf("seed %s", st.Scope)
	case OpMove:
		outcome := "boundary"
		if st.Moved {
			outcome = "moved"
		}
		return fmt.Sprintf("move %s %s: %s", st.ID, st.Direction, outcome)
	case OpCompact:
		return fmt.Sprintf("compact %s: %d writes", st.Scope, st.Writes)
	case OpDelete:
		return fmt.Sprintf("delete %s", st.ID)
	default:
		return st.Op
	}
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(name, result))
}
