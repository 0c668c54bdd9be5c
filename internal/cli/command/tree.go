package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/vatlidak/proctree-go/internal/cli/connection"
	"github.com/vatlidak/proctree-go/internal/cli/output"
	"github.com/vatlidak/proctree-go/internal/core/domain"
)

// snapshotPayload mirrors the server's snapshot response body.
type snapshotPayload struct {
	ID           string              `json:"id"`
	TakenAt      time.Time           `json:"taken_at"`
	Records      []domain.TaskRecord `json:"records"`
	TotalVisited int                 `json:"total_visited"`
	Truncated    bool                `json:"truncated"`
	Archived     bool                `json:"archived,omitempty"`
}

// TreeCommand returns the tree command: capture a snapshot and render
// it as an ASCII hierarchy.
func TreeCommand() *cli.Command {
	return &cli.Command{
		Name:  "tree",
		Usage: "Show the current task hierarchy",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "capacity",
				Aliases: []string{"c"},
				Usage:   "Maximum records to capture (0 = server default)",
			},
		},
		Action: treeAction,
	}
}

func treeAction(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	path := "/v1/snapshot"
	if capacity := c.Int("capacity"); capacity > 0 {
		path = fmt.Sprintf("%s?capacity=%d", path, capacity)
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
	if output.Format(flags.Output) == output.FormatJSON {
		return (&output.JSONFormatter{}).Format(os.Stdout, snap)
	}

	tree := &output.TreeFormatter{ShowOwner: flags.Wide}
	if err := tree.Format(os.Stdout, snap.Records); err != nil {
		return err
	}

	if snap.Truncated {
		fmt.Printf("\n%d of %d tasks shown (capacity reached; retry with a larger -c)\n",
			len(snap.Records), snap.TotalVisited)
	} else if flags.Verbose {
		fmt.Printf("\n%d tasks\n", snap.TotalVisited)
	}
	return nil
}
