package harness

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioFiles_Golden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

// TestScenarioFiles_BackendsAgree runs every scenario on both backends and
// compares the final state.
func TestScenarioFiles_BackendsAgree(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)

			finals := make(map[string]*Result)
			for _, name := range []string{BackendMemory, BackendSQLite} {
				backend, err := NewBackend(name)
				require.NoError(t, err)
				t.Cleanup(func() { backend.Close() })

				result, err := RunOn(context.Background(), backend, scenario)
				require.NoError(t, err)
				require.True(t, result.Pass, "%s: %v", name, result.Errors)
				finals[name] = result
			}

			mem, lite := finals[BackendMemory], finals[BackendSQLite]
			if diff := cmp.Diff(mem.Final, lite.Final); diff != "" {
				t.Errorf("final state mismatch (-memory +sqlite):\n%s", diff)
			}
			if diff := cmp.Diff(mem.Steps, lite.Steps); diff != "" {
				t.Errorf("step results mismatch (-memory +sqlite):\n%s", diff)
			}
		})
	}
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	moved := true
	writes := 3
	scenario := &Scenario{
		Name:        "wrong",
		Description: "expectations that do not hold",
		Steps: []Step{
			{Op: OpAdd, Scope: "s", IDs: []string{"A", "B"}},
			{Op: OpMove, ID: "A", Direction: "up", Moved: &moved},
			{Op: OpCompact, Scope: "s", Writes: &writes},
		},
		Expect: map[string][]string{"s": {"B", "A"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 3)
}

func TestRun_ReportsGaps(t *testing.T) {
	scenario := &Scenario{
		Name:        "gapped",
		Description: "seeded gaps never compacted",
		Steps: []Step{
			{Op: OpSeed, Scope: "s", Orders: map[string]int64{"A": 0, "B": 2}},
		},
		Expect: map[string][]string{"s": {"A", "B"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "not contiguous")

	scenario.AllowGaps = true
	result, err = Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass)
}

func TestRun_UnknownRecordFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "ghost",
		Description: "moving a record that does not exist",
		Steps:       []Step{{Op: OpMove, ID: "ghost", Direction: "down"}},
		Expect:      map[string][]string{"s": {}},
	}

	_, err := Run(scenario)
	assert.Error(t, err)
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nsteps: [{op: compact}]\nexpect: {s: []}\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nsteps: [{op: compact}]\nexpect: {s: []}\n",
			want: "description is required",
		},
		{
			name: "no steps",
			yaml: "name: n\ndescription: d\nexpect: {s: []}\n",
			want: "steps list is required",
		},
		{
			name: "no expect",
			yaml: "name: n\ndescription: d\nsteps: [{op: compact}]\n",
			want: "expect is required",
		},
		{
			name: "unknown op",
			yaml: "name: n\ndescription: d\nsteps: [{op: shuffle}]\nexpect: {s: []}\n",
			want: `unknown op "shuffle"`,
		},
		{
			name: "bad direction",
			yaml: "name: n\ndescription: d\nsteps: [{op: move, id: a, direction: left}]\nexpect: {s: []}\n",
			want: "invalid direction",
		},
		{
			name: "negative seed",
			yaml: "name: n\ndescription: d\nsteps: [{op: seed, scope: s, orders: {a: -1}}]\nexpect: {s: []}\n",
			want: "must be non-negative",
		},
		{
			name: "unknown backend",
			yaml: "name: n\ndescription: d\nbackend: redis\nsteps: [{op: compact}]\nexpect: {s: []}\n",
			want: "unknown backend",
		},
		{
			name: "unknown field",
			yaml: "name: n\ndescription: d\nstep: []\n",
			want: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSnapshot_ReportsErrors(t *testing.T) {
	r := NewResult()
	r.Backend = BackendMemory
	r.AddError("scope %q: broken", "s")

	got := string(Snapshot("x", r))
	assert.Contains(t, got, "pass: false\n")
	assert.Contains(t, got, `error: scope "s": broken`)
}

func TestMemoryBackend_ConcurrentAddsStayDense(t *testing.T) {
	ctx := context.Background()
	backend, err := NewBackend(BackendMemory)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	const n = 16
	orders := make([]int64, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := backend.Add(ctx, "s", fmt.Sprintf("r%02d", i))
			assert.NoError(t, err)
			orders[i] = o
		}()
	}
	wg.Wait()

	slices.Sort(orders)
	for i, o := range orders {
		assert.Equal(t, int64(i), o)
	}
}
