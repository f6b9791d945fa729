// Package cmd implements CLI commands.
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"icc.tech/aes67-agent/internal/command"
)

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the aes67-agent daemon",
	Long: `Stop the aes67-agent daemon gracefully.

This command sends a shutdown signal to the running daemon via Unix Domain Socket.
The daemon will leave the SAP multicast group, close the control socket, and exit cleanly.`,
	Run: func(cmd *cobra.Command, args []string) {
		runStopCommand()
	},
}

func runStopCommand() {
	client := command.NewUDSClient(socketPath, 10*time.Second)
	ctx := context.Background()

	if err := client.Ping(ctx); err != nil {
		exitWithError("daemon is not running or socket is inaccessible", err)
	}

	resp, err := client.DaemonShutdown(ctx)
	if err != nil {
		exitWithError("failed to send shutdown command", err)
	}

	if resp.Error != nil {
		exitWithError(fmt.Sprintf("daemon_shutdown failed: %s", resp.Error.Message), nil)
	}

	fmt.Println("Shutdown signal sent. Daemon is stopping.")
}
