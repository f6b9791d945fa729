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

var streamsCmd = &cobra.Command{
	Use:   "streams",
	Short: "List discovered streams",
	Long: `List the streams the daemon has discovered via SAP announcements.

By default all known streams are shown, including expired ones still kept
for history. Use --active to restrict the list to streams whose last
announcement is within the configured timeout.`,
	Run: func(cmd *cobra.Command, args []string) {
		runStreamsCommand()
	},
}

var streamsActiveOnly bool

func init() {
	streamsCmd.Flags().BoolVarP(&streamsActiveOnly, "active", "a", false,
		"only show active streams")
}

func runStreamsCommand() {
	client := command.NewUDSClient(socketPath, 10*time.Second)
	ctx := context.Background()

	resp, err := client.StreamList(ctx, streamsActiveOnly)
	if err != nil {
		exitWithError("failed to list streams", err)
	}

	if resp.Error != nil {
		exitWithError(fmt.Sprintf("stream_list failed: %s", resp.Error.Message), nil)
	}

	resultJSON, err := json.MarshalIndent(resp.Result, "", "  ")
	if err != nil {
		exitWithError("failed to format result", err)
	}

	fmt.Println(string(resultJSON))
}
