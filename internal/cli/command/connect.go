package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/vatlidak/proctree-go/internal/cli/connection"
)

// ConnectCommand returns the connect command.
func ConnectCommand() *cli.Command {
	return &cli.Command{
		Name:      "connect",
		Usage:     "Connect to a server and verify it is reachable",
		ArgsUsage: "[SERVER]",
		Action:    connectAction,
	}
}

// DisconnectCommand returns the disconnect command.
func DisconnectCommand() *cli.Command {
	return &cli.Command{
		Name:   "disconnect",
		Usage:  "Disconnect from the current server",
		Action: disconnectAction,
	}
}

func connectAction(c *cli.Context) error {
	flags := ParseGlobalFlags(c)

	server := c.Args().First()
	if server == "" {
		server = flags.Server
	}
	if server == "" {
		return fmt.Errorf("server address required (argument or --server)")
	}

	conn := &connection.Connection{
		Name:     server,
		Server:   server,
		APIKeyID: flags.APIKeyID,
		APIKey:   flags.APIKey,
	}

	client := connection.NewHTTPClient(conn.Server, conn.APIKeyID, conn.APIKey)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/health")
	if err != nil {
		return fmt.Errorf("cannot reach %s: %w", server, err)
	}
	if err := connection.ParseResponse(resp, nil); err != nil {
		return fmt.Errorf("server at %s is not healthy: %w", server, err)
	}

	if mgr := GetConnectionManager(c); mgr != nil {
		if err := mgr.Connect(conn); err != nil {
			return err
		}
	}

	fmt.Printf("Connected to %s\n", server)
	return nil
}

func disconnectAction(c *cli.Context) error {
	mgr := GetConnectionManager(c)
	if mgr == nil || !mgr.IsConnected() {
		fmt.Println("Not connected.")
		return nil
	}
	server := mgr.Current().Server
	mgr.Disconnect()
	fmt.Printf("Disconnected from %s\n", server)
	return nil
}
