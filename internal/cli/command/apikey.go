package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/vatlidak/proctree-go/internal/cli/connection"
	"github.com/vatlidak/proctree-go/internal/cli/output"
)

// APIKeyCommand returns the apikey subcommand group.
func APIKeyCommand() *cli.Command {
	return &cli.Command{
		Name:    "apikey",
		Aliases: []string{"key"},
		Usage:   "Manage API keys",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List API keys",
				Action: apikeyList,
			},
			{
				Name:  "create",
				Usage: "Create a new API key",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "Key name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "role",
						Aliases:  []string{"r"},
						Usage:    "Key role (observer, admin)",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "rate-limit",
						Usage: "Per-key rate limit (requests/second, 0 = default)",
					},
				},
				Action: apikeyCreate,
			},
			{
				Name:      "disable",
				Usage:     "Disable an API key",
				ArgsUsage: "KEY_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Skip confirmation",
					},
				},
				Action: apikeyDisable,
			},
			{
				Name:      "enable",
				Usage:     "Enable an API key",
				ArgsUsage: "KEY_ID",
				Action:    apikeyEnable,
			},
			{
				Name:      "delete",
				Usage:     "Delete an API key",
				ArgsUsage: "KEY_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Skip confirmation",
					},
				},
				Action: apikeyDelete,
			},
		},
	}
}

func apikeyList(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/admin/v1/keys")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		Keys []struct {
			KeyID     string    `json:"key_id"`
			Name      string    `json:"name"`
			Role      string    `json:"role"`
			Enabled   bool      `json:"enabled"`
			RateLimit int       `json:"rate_limit"`
			CreatedAt time.Time `json:"created_at"`
			LastUsed  time.Time `json:"last_used"`
		} `json:"keys"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	if output.Format(flags.Output) == output.FormatJSON {
		return (&output.JSONFormatter{}).Format(os.Stdout, result)
	}

	table := &output.Table{
		Headers: []string{"KEY ID", "NAME", "ROLE", "ENABLED", "RATE LIMIT", "CREATED"},
	}
	for _, key := range result.Keys {
		enabled := "yes"
		if !key.Enabled {
			enabled = "no"
		}
		table.AddRow(
			key.KeyID,
			key.Name,
			key.Role,
			enabled,
			fmt.Sprintf("%d", key.RateLimit),
			key.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	return table.Render(os.Stdout)
}

func apikeyCreate(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body := map[string]any{
		"name": c.String("name"),
		"role": c.String("role"),
	}
	if limit := c.Int("rate-limit"); limit > 0 {
		body["rate_limit"] = limit
	}

	resp, err := client.Post(ctx, "/admin/v1/keys", body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		KeyID  string `json:"key_id"`
		Secret string `json:"secret"`
		Role   string `json:"role"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	fmt.Printf("API key created:\n")
	fmt.Printf("  Key ID: %s\n", result.KeyID)
	fmt.Printf("  Secret: %s\n", result.Secret)
	fmt.Printf("  Role:   %s\n", result.Role)
	fmt.Printf("\nSave this secret - it cannot be retrieved later.\n")
	return nil
}

func apikeyDisable(c *cli.Context) error {
	return apikeySetEnabled(c, false)
}

func apikeyEnable(c *cli.Context) error {
	return apikeySetEnabled(c, true)
}

func apikeySetEnabled(c *cli.Context, enabled bool) error {
	keyID := c.Args().First()
	if keyID == "" {
		return fmt.Errorf("key ID required")
	}

	if !enabled && !c.Bool("force") {
		fmt.Printf("Disable API key '%s'? [y/N]: ", keyID)
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "y" && confirm != "Y" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Post(ctx, "/admin/v1/keys/"+keyID+"/status",
		map[string]bool{"enabled": enabled})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if err := connection.ParseResponse(resp, nil); err != nil {
		return err
	}

	if enabled {
		fmt.Printf("API key %s enabled.\n", keyID)
	} else {
		fmt.Printf("API key %s disabled.\n", keyID)
	}
	return nil
}

func apikeyDelete(c *cli.Context) error {
	keyID := c.Args().First()
	if keyID == "" {
		return fmt.Errorf("key ID required")
	}

	if !c.Bool("force") {
		fmt.Printf("Delete API key '%s'? This cannot be undone. [y/N]: ", keyID)
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "y" && confirm != "Y" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Delete(ctx, "/admin/v1/keys/"+keyID)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if err := connection.ParseResponse(resp, nil); err != nil {
		return err
	}

	fmt.Printf("API key %s deleted.\n", keyID)
	return nil
}
