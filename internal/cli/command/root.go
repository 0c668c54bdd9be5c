package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	cliconfig "github.com/vatlidak/proctree-go/internal/cli/config"
	"github.com/vatlidak/proctree-go/internal/cli/connection"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// App creates the CLI application. Flag defaults come from the client
// config file when present; flags and environment override it.
func App() *cli.App {
	cfg, err := cliconfig.Load("")
	if err != nil {
		PrintError("ignoring client config: %v", err)
		cfg = cliconfig.Default()
	}

	app := &cli.App{
		Name:    "proctree-cli",
		Usage:   "proctree command-line management tool",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime),
		Flags:   globalFlags(cfg),
		Commands: []*cli.Command{
			TreeCommand(),
			SnapshotCommand(),
			TaskCommand(),
			APIKeyCommand(),
			SystemCommand(),
			ConnectCommand(),
			DisconnectCommand(),
			ConfigCommand(),
		},
		Before: func(c *cli.Context) error {
			c.App.Metadata["connMgr"] = connection.NewManager()
			return nil
		},
	}

	return app
}

// globalFlags returns the global CLI flags.
func globalFlags(cfg *cliconfig.CLIConfig) []cli.Flag {
	if cfg == nil {
		cfg = cliconfig.Default()
	}
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "proctree server address (e.g., localhost:5080)",
			EnvVars: []string{"PROCTREE_SERVER"},
			Value:   cfg.Server,
		},
		&cli.StringFlag{
			Name:    "api-key-id",
			Aliases: []string{"k"},
			Usage:   "API Key ID for authentication",
			EnvVars: []string{"PROCTREE_API_KEY_ID"},
			Value:   cfg.APIKeyID,
		},
		&cli.StringFlag{
			Name:    "api-key",
			Aliases: []string{"K"},
			Usage:   "API Key secret for authentication",
			EnvVars: []string{"PROCTREE_API_KEY"},
			Value:   cfg.APIKey,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml, tree",
			Value:   cfg.Output,
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable verbose output",
		},
	}
}

// GlobalFlags holds flags available to all commands.
type GlobalFlags struct {
	Server   string
	APIKeyID string
	APIKey   string

	Output string
	Wide   bool

	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Server:   c.String("server"),
		APIKeyID: c.String("api-key-id"),
		APIKey:   c.String("api-key"),
		Output:   c.String("output"),
		Wide:     c.Bool("wide"),
		Verbose:  c.Bool("verbose"),
	}
}

// GetConnectionManager retrieves the connection manager from context.
func GetConnectionManager(c *cli.Context) *connection.Manager {
	if mgr, ok := c.App.Metadata["connMgr"].(*connection.Manager); ok {
		return mgr
	}
	return nil
}

// EnsureConnected builds an HTTP client from the global flags.
func EnsureConnected(c *cli.Context) (*connection.HTTPClient, error) {
	flags := ParseGlobalFlags(c)
	return connection.NewHTTPClient(flags.Server, flags.APIKeyID, flags.APIKey), nil
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
