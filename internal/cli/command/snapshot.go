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

// SnapshotCommand returns the snapshot subcommand group.
func SnapshotCommand() *cli.Command {
	return &cli.Command{
		Name:    "snapshot",
		Aliases: []string{"snap"},
		Usage:   "Capture and manage hierarchy snapshots",
		Subcommands: []*cli.Command{
			{
				Name:  "take",
				Usage: "Capture a snapshot",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "capacity",
						Aliases: []string{"c"},
						Usage:   "Maximum records to capture (0 = server default)",
					},
					&cli.BoolFlag{
						Name:    "archive",
						Aliases: []string{"a"},
						Usage:   "Persist the snapshot on the server",
					},
				},
				Action: snapshotTake,
			},
			{
				Name:  "list",
				Usage: "List archived snapshots (newest first)",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Usage:   "Maximum entries to list",
					},
				},
				Action: snapshotList,
			},
			{
				Name:      "get",
				Usage:     "Fetch an archived snapshot",
				ArgsUsage: "SNAPSHOT_ID",
				Action:    snapshotGet,
			},
			{
				Name:      "delete",
				Usage:     "Delete an archived snapshot",
				ArgsUsage: "SNAPSHOT_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Skip confirmation",
					},
				},
				Action: snapshotDelete,
			},
			{
				Name:  "prune",
				Usage: "Remove old archived snapshots",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "keep",
						Usage:    "Number of newest snapshots to keep",
						Required: true,
					},
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Skip confirmation",
					},
				},
				Action: snapshotPrune,
			},
		},
	}
}

func snapshotTake(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	path := "/v1/snapshot"
	sep := "?"
	if capacity := c.Int("capacity"); capacity > 0 {
		path += fmt.Sprintf("%scapacity=%d", sep, capacity)
		sep = "&"
	}
	if c.Bool("archive") {
		path += sep + "archive=true"
	}

	resp, err := client.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var snap snapshotPayload
	if err := connection.ParseResponse(resp, &snap); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	switch output.Format(flags.Output) {
	case output.FormatJSON:
		return (&output.JSONFormatter{}).Format(os.Stdout, snap)
	case output.FormatYAML:
		return (&output.YAMLFormatter{}).Format(os.Stdout, snap)
	case output.FormatTree:
		return (&output.TreeFormatter{ShowOwner: flags.Wide}).Format(os.Stdout, snap.Records)
	default:
		fmt.Printf("Snapshot captured:\n")
		fmt.Printf("  ID:            %s\n", snap.ID)
		fmt.Printf("  Taken at:      %s\n", snap.TakenAt.Format(time.RFC3339))
		fmt.Printf("  Records:       %d\n", len(snap.Records))
		fmt.Printf("  Total visited: %d\n", snap.TotalVisited)
		if snap.Truncated {
			fmt.Printf("  Truncated:     yes (retry with a larger capacity for full coverage)\n")
		}
		if snap.Archived {
			fmt.Printf("  Archived:      yes\n")
		}
		return nil
	}
}

func snapshotList(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	path := "/v1/archive/snapshots"
	if limit := c.Int("limit"); limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	resp, err := client.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		Snapshots []struct {
			ID           string    `json:"id"`
			TakenAt      time.Time `json:"taken_at"`
			RecordCount  int       `json:"record_count"`
			TotalVisited int       `json:"total_visited"`
		} `json:"snapshots"`
		Count int `json:"count"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	if output.Format(flags.Output) == output.FormatJSON {
		return (&output.JSONFormatter{}).Format(os.Stdout, result)
	}

	table := &output.Table{
		Headers: []string{"SNAPSHOT ID", "TAKEN AT", "RECORDS", "TOTAL VISITED"},
	}
	for _, entry := range result.Snapshots {
		table.AddRow(
			entry.ID,
			entry.TakenAt.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", entry.RecordCount),
			fmt.Sprintf("%d", entry.TotalVisited),
		)
	}
	if err := table.Render(os.Stdout); err != nil {
		return err
	}
	fmt.Printf("\nTotal: %d snapshots\n", result.Count)
	return nil
}

func snapshotGet(c *cli.Context) error {
	snapshotID := c.Args().First()
	if snapshotID == "" {
		return fmt.Errorf("snapshot ID required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/v1/archive/snapshots/"+snapshotID)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var snap snapshotPayload
	if err := connection.ParseResponse(resp, &snap); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	switch output.Format(flags.Output) {
	case output.FormatTree, output.FormatTable:
		if err := (&output.TreeFormatter{ShowOwner: flags.Wide}).Format(os.Stdout, snap.Records); err != nil {
			return err
		}
		fmt.Printf("\n%s taken %s, %d of %d tasks\n",
			snap.ID, snap.TakenAt.Format(time.RFC3339), len(snap.Records), snap.TotalVisited)
		return nil
	default:
		formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
		return formatter.Format(os.Stdout, snap)
	}
}

func snapshotDelete(c *cli.Context) error {
	snapshotID := c.Args().First()
	if snapshotID == "" {
		return fmt.Errorf("snapshot ID required")
	}

	if !c.Bool("force") {
		fmt.Printf("Are you sure you want to delete snapshot '%s'? [y/N]: ", snapshotID)
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

	resp, err := client.Delete(ctx, "/v1/archive/snapshots/"+snapshotID)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if err := connection.ParseResponse(resp, nil); err != nil {
		return err
	}

	fmt.Printf("Snapshot %s deleted.\n", snapshotID)
	return nil
}

func snapshotPrune(c *cli.Context) error {
	keep := c.Int("keep")

	if !c.Bool("force") {
		fmt.Printf("This will remove all but the newest %d snapshots. Continue? [y/N]: ", keep)
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

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	resp, err := client.Post(ctx, "/v1/archive/prune", map[string]int{"keep": keep})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		Removed int `json:"removed"`
		Kept    int `json:"kept"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	fmt.Printf("Pruned %d snapshots, %d kept.\n", result.Removed, result.Kept)
	return nil
}
