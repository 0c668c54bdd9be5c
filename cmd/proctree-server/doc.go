// Package main provides the entry point for proctree-server.
//
// The server maintains a live process hierarchy and serves it over
// HTTP:
//
//   - Snapshot capture of the hierarchy in walk order, with capacity
//     bounds and graceful truncation
//   - Task lifecycle management (spawn, exit, state changes)
//   - Optional mirroring of the host's process table from /proc
//   - Snapshot archiving with retention-based pruning
//   - API key authentication with role-based access
//
// Usage:
//
//	proctree-server [flags]
//	proctree-server --config /path/to/config.yaml
//
// The server loads configuration, initializes infrastructure
// components, and starts the HTTP listener.
package main
