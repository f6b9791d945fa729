// Package cmd implements CLI commands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"icc.tech/aes67-agent/internal/command"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show discovery statistics",
	Long: `Query the daemon for SAP discovery statistics.

Shows: packets received/invalid, announcements, deletions, SDP parse
errors, and the number of active streams.`,
	Run: func(cmd *cobra.Command, args []string) {
		runStatsCommand()
	},
}

func runStatsCommand() {
	client := command.NewUDSClient(socketPath, 10*time.Second)
	ctx := context.Background()

	resp, err := client.DiscoveryStats(ctx)
	if err != nil {
		exitWithError("failed to query discovery stats", err)
	}

	if resp.Error != nil {
		exitWithError(fmt.Sprintf("discovery_stats failed: %s", resp.Error.Message), nil)
	}

	resultJSON, err := json.MarshalIndent(resp.Result, "", "  ")
	if err != nil {
		exitWithError("failed to format result", err)
	}

	fmt.Println(string(resultJSON))
}
