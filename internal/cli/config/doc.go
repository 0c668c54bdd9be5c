// Package config defines the proctree-cli client configuration:
// default server address, credentials, and output preferences, loaded
// from ~/.proctree/cli.yaml.
package config
