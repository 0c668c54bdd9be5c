// Package output provides output formatting for proctree-cli:
// tables, JSON, YAML, and the ASCII hierarchy view rendered from
// snapshot records.
package output
