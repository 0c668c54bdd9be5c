// Package handler provides HTTP request handlers for proctree.
//
// This package contains handlers for all HTTP endpoints:
//
//   - snapshot.go: hierarchy snapshot capture
//   - tasks.go: task lookup and registry mutation
//   - archive.go: archived snapshot retrieval and pruning
//   - admin.go: status and API key management
//   - health.go: health and readiness checks
//
// All handlers follow a consistent pattern:
//
//   - Parse and validate request
//   - Call domain service
//   - Format and return response
//   - Handle errors with appropriate HTTP status codes
package handler
