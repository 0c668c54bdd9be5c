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

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Server status and health",
		Subcommands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show server status summary",
				Action: systemStatus,
			},
			{
				Name:   "health",
				Usage:  "Check server health",
				Action: systemHealth,
			},
		},
	}
}

func systemStatus(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/admin/v1/status/summary")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		Version       string `json:"version"`
		GitCommit     string `json:"git_commit"`
		GoVersion     string `json:"go_version"`
		UptimeSeconds int64  `json:"uptime_seconds"`
		LiveTasks     int    `json:"live_tasks"`
		ArchivedCount int    `json:"archived_count"`
		Goroutines    int    `json:"goroutines"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	if output.Format(flags.Output) == output.FormatJSON {
		return (&output.JSONFormatter{}).Format(os.Stdout, result)
	}

	uptime := time.Duration(result.UptimeSeconds) * time.Second
	fmt.Printf("Server Status\n")
	fmt.Printf("  Version:    %s (%s)\n", result.Version, result.GitCommit)
	fmt.Printf("  Go:         %s\n", result.GoVersion)
	fmt.Printf("  Uptime:     %s\n", uptime)
	fmt.Printf("  Live tasks: %d\n", result.LiveTasks)
	fmt.Printf("  Archived:   %d\n", result.ArchivedCount)
	fmt.Printf("  Goroutines: %d\n", result.Goroutines)
	return nil
}

func systemHealth(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/health")
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}

	var result struct {
		Status        string  `json:"status"`
		UptimeSeconds float64 `json:"uptime_seconds"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	fmt.Printf("Server is %s (uptime %s)\n",
		result.Status, time.Duration(result.UptimeSeconds*float64(time.Second)).Round(time.Second))
	return nil
}
