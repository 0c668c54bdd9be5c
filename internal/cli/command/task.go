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

// TaskCommand returns the task subcommand group.
func TaskCommand() *cli.Command {
	return &cli.Command{
		Name:  "task",
		Usage: "Inspect and mutate registry tasks",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show one task record",
				ArgsUsage: "TASK_ID",
				Action:    taskGet,
			},
			{
				Name:  "spawn",
				Usage: "Create a task in the registry",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "label",
						Aliases:  []string{"l"},
						Usage:    "Task display name",
						Required: true,
					},
					&cli.Uint64Flag{
						Name:    "parent",
						Aliases: []string{"p"},
						Usage:   "Parent task ID (0 = root)",
					},
					&cli.UintFlag{
						Name:    "owner",
						Aliases: []string{"u"},
						Usage:   "Owning UID",
					},
					&cli.StringFlag{
						Name:  "state",
						Usage: "Initial state (runnable, sleeping, ...)",
						Value: "runnable",
					},
				},
				Action: taskSpawn,
			},
			{
				Name:      "exit",
				Usage:     "Exit a task (children are reparented to root)",
				ArgsUsage: "TASK_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Skip confirmation",
					},
				},
				Action: taskExit,
			},
			{
				Name:      "state",
				Usage:     "Set a task's run-state",
				ArgsUsage: "TASK_ID STATE",
				Action:    taskState,
			},
		},
	}
}

func taskGet(c *cli.Context) error {
	taskID := c.Args().First()
	if taskID == "" {
		return fmt.Errorf("task ID required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/v1/tasks/"+taskID)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result map[string]any
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	formatter := output.NewFormatter(output.Format(flags.Output), flags.Wide)
	return formatter.Format(os.Stdout, result)
}

func taskSpawn(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body := map[string]any{
		"label":     c.String("label"),
		"parent_id": c.Uint64("parent"),
		"owner_id":  c.Uint("owner"),
		"state":     c.String("state"),
	}

	resp, err := client.Post(ctx, "/v1/tasks", body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		ID       uint64 `json:"id"`
		ParentID uint64 `json:"parent_id"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	fmt.Printf("Task %d spawned under %d.\n", result.ID, result.ParentID)
	return nil
}

func taskExit(c *cli.Context) error {
	taskID := c.Args().First()
	if taskID == "" {
		return fmt.Errorf("task ID required")
	}

	if !c.Bool("force") {
		fmt.Printf("Exit task %s? Its children move under root. [y/N]: ", taskID)
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

	resp, err := client.Post(ctx, "/v1/tasks/"+taskID+"/exit", nil)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if err := connection.ParseResponse(resp, nil); err != nil {
		return err
	}

	fmt.Printf("Task %s exited.\n", taskID)
	return nil
}

func taskState(c *cli.Context) error {
	taskID := c.Args().Get(0)
	state := c.Args().Get(1)
	if taskID == "" || state == "" {
		return fmt.Errorf("usage: task state TASK_ID STATE")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Post(ctx, "/v1/tasks/"+taskID+"/state", map[string]string{"state": state})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if err := connection.ParseResponse(resp, nil); err != nil {
		return err
	}

	fmt.Printf("Task %s is now %s.\n", taskID, state)
	return nil
}
