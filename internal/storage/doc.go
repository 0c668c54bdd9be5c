// Package storage provides the Badger-backed persistence layer.
//
// A single Store owns the Badger database and its background GC loop.
// The snapshot archive and API key store are views over that database,
// each under its own key prefix:
//
//	snap/{snapshot-id} -> JSON-encoded snapshot
//	key/{key-id}       -> JSON-encoded API key
//
// Snapshot IDs embed a ULID, so lexicographic key order is creation
// order and range scans come back oldest first.
package storage
