// Package config provides server configuration for proctree.
//
// The structure is split the usual way:
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Business validation (paths, bounds)
//   - sanitize.go: Log sanitization (hide sensitive values)
//
// Configuration is loaded via internal/infra/confloader and supports
// files, environment variables, and flags.
package config
