package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	cliconfig "github.com/vatlidak/proctree-go/internal/cli/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage CLI configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the current configuration",
				Action: configShow,
			},
			{
				Name:      "set",
				Usage:     "Set a configuration value",
				ArgsUsage: "KEY VALUE",
				Action:    configSet,
			},
			{
				Name:   "path",
				Usage:  "Print the configuration file path",
				Action: configPath,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	cfg, err := cliconfig.Load("")
	if err != nil {
		return err
	}

	apiKey := cfg.APIKey
	if len(apiKey) > 10 {
		apiKey = apiKey[:10] + "..."
	}

	fmt.Printf("server:     %s\n", cfg.Server)
	fmt.Printf("api_key_id: %s\n", cfg.APIKeyID)
	fmt.Printf("api_key:    %s\n", apiKey)
	fmt.Printf("output:     %s\n", cfg.Output)
	return nil
}

func configSet(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: config set KEY VALUE")
	}
	key, value := c.Args().Get(0), c.Args().Get(1)

	cfg, err := cliconfig.Load("")
	if err != nil {
		return err
	}

	switch key {
	case "server":
		cfg.Server = value
	case "api_key_id":
		cfg.APIKeyID = value
	case "api_key":
		cfg.APIKey = value
	case "output":
		switch value {
		case "table", "json", "yaml", "tree":
		default:
			return fmt.Errorf("invalid output format %q (table, json, yaml, tree)", value)
		}
		cfg.Output = value
	default:
		return fmt.Errorf("unknown key %q (server, api_key_id, api_key, output)", key)
	}

	if err := cliconfig.Save(cfg, ""); err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", key, value)
	return nil
}

func configPath(c *cli.Context) error {
	fmt.Println(cliconfig.DefaultConfigPath())
	return nil
}
