// Package order maintains a dense, gapless relative ordering over records
// that share a scope.
//
// Every scope holding N records carries the order values {0, 1, ..., N-1},
// each exactly once. Three operations keep it that way:
//
//   - AssignOrder: a new record gets max(order)+1, or 0 in an empty scope.
//   - Move: a record swaps order values with its immediate neighbor in the
//     given direction, then the scope is compacted.
//   - Compact: renumbers the scope to 0..N-1 preserving relative order,
//     writing only records that are out of place.
//
// # Record Store
//
// The package never creates or deletes records. It reads and patches them
// through the Store interface. PatchOrder is a raw field update: it must not
// run record hooks, bump timestamps or revisions, or emit notifications.
//
// # Concurrency
//
// The package-level Move and Compact functions perform several reads and
// writes with no serialization. Two concurrent moves on the same scope can
// interleave and leave duplicate order values behind. Production callers use
// Orderer, which holds a per-scope lock and, when the store implements
// Transactor, runs each operation inside a single store transaction.
package order
