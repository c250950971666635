// Package store provides SQLite-backed storage for ordered records.
//
// Each record belongs to a scope and carries a sort_order. Within a scope the
// sort_order values form 0..N-1 whenever no operation is in progress. The
// store implements order.Store, order.Transactor and order.OrderLookup, so
// the ordering operations of package order run directly against it.
//
// # Two Write Paths
//
// Full-lifecycle saves (Create, Update) validate the record, normalise its
// scope, bump revision and updated_at, and on Create assign the initial
// order. The raw patch (PatchOrder) writes sort_order and nothing else: no
// validation, no revision, no timestamp. Reordering always uses the patch.
//
// # Deterministic Reads
//
// Every scope read orders by sort_order ASC, id ASC COLLATE BINARY so ties
// left by an interrupted operation still read back in a stable sequence.
//
// # Scope Names
//
// Scope names are trimmed and NFC-normalised on every read and write, so
// visually identical names composed differently address the same scope.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout: Wait for locks (default 5 seconds)
//   - Single open connection: SQLite allows one writer at a time
package store
