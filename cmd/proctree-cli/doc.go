// Package main provides the entry point for proctree-cli.
//
// The CLI tool provides command-line access to proctree-server for:
//
//   - Viewing the live task hierarchy as an ASCII tree
//   - Snapshot capture, archive browsing, and pruning
//   - Task lifecycle management (spawn, exit, state changes)
//   - API key management (create, list, disable, delete)
//   - System administration
//
// Usage:
//
//	proctree-cli [command] [flags]
//	proctree-cli tree --server localhost:5080
//	proctree-cli snapshot take --archive
//
// Running without a command starts interactive shell mode.
package main
