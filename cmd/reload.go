// Package cmd implements CLI commands.
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"icc.tech/aes67-agent/internal/command"
)

// reloadCmd represents the reload command
var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload daemon configuration",
	Long: `Ask the running daemon to reload its configuration file.

Log level and format are applied immediately. Discovery group, port, and
metrics listen address require a daemon restart.`,
	Run: func(cmd *cobra.Command, args []string) {
		runReloadCommand()
	},
}

func runReloadCommand() {
	client := command.NewUDSClient(socketPath, 10*time.Second)
	ctx := context.Background()

	resp, err := client.ConfigReload(ctx)
	if err != nil {
		exitWithError("failed to send reload command", err)
	}

	if resp.Error != nil {
		exitWithError(fmt.Sprintf("config_reload failed: %s", resp.Error.Message), nil)
	}

	fmt.Println("Configuration reloaded.")
}
