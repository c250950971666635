// Package testutil provides deterministic helpers for tests and scenario runs.
package testutil
