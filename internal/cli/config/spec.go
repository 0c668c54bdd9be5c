package config

// CLIConfig holds client-side settings for proctree-cli.
type CLIConfig struct {
	// Server is the default server address (host:port).
	Server string `koanf:"server" yaml:"server"`

	// APIKeyID and APIKey are the default credentials.
	APIKeyID string `koanf:"api_key_id" yaml:"api_key_id"`
	APIKey   string `koanf:"api_key" yaml:"api_key"`

	// Output is the default output format (table, json, yaml, tree).
	Output string `koanf:"output" yaml:"output"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server: "localhost:5080",
		Output: "table",
	}
}
