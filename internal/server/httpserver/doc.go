// Package httpserver provides the HTTP/HTTPS server for proctree.
//
// This package implements the external API using stdlib net/http:
//
//   - Snapshot endpoint: /v1/snapshot
//   - Task endpoints: /v1/tasks, /v1/tasks/{id}
//   - Archive endpoints: /v1/archive/*
//   - Admin endpoints: /admin/v1/*
//   - Health endpoints: /health, /ready, /metrics
//
// Features:
//
//   - TLS support
//   - Middleware chain: RequestID, Recover, Metrics, Audit, RateLimit, Auth
//   - Graceful shutdown with configurable timeout
//   - Prometheus metrics integration
package httpserver
