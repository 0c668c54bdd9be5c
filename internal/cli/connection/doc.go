// Package connection provides server connection management for
// proctree-cli: an HTTP client aware of the API response envelope,
// and a small manager for the active connection.
package connection
