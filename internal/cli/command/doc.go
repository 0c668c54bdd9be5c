// Package command provides CLI command definitions for proctree-cli.
//
// It uses urfave/cli/v2 for command parsing. Commands talk to a
// running proctree server over its HTTP API and render results as
// tables, JSON, YAML, or the ASCII hierarchy view.
package command
