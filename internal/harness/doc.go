// Package harness runs ordering scenarios described in YAML.
//
// A scenario is a list of steps (add, seed, move, compact, delete) applied
// to a fresh backend, followed by the expected id sequence of each scope.
// After the last step every scope must satisfy the contiguity invariant
// unless the scenario sets allow_gaps.
//
// Backends:
//   - memory: internal/order/memstore
//   - sqlite: internal/store on an in-memory SQLite database
//
// Results render to a stable text snapshot that RunWithGolden compares
// against testdata/golden/{name}.golden. To regenerate golden files, run:
//
//	go test ./internal/harness -update
package harness
