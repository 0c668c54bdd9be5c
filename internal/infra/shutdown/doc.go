// Package shutdown provides graceful shutdown for the proctree
// server.
//
// A Handler waits for SIGINT/SIGTERM, then runs registered cleanup
// hooks in reverse order under a single timeout: HTTP server drain,
// collector stop, storage close.
package shutdown
