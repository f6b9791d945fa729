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

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Find a discovered stream by name or address",
	Long: `Find a single active stream by session name or multicast address.

Examples:
  aes67-agent find --name "Studio A Mix"
  aes67-agent find --addr 239.69.1.100
  aes67-agent find --addr 239.69.1.100 --port 5004`,
	Run: func(cmd *cobra.Command, args []string) {
		runFindCommand()
	},
}

var (
	findName string
	findAddr string
	findPort int
)

func init() {
	findCmd.Flags().StringVarP(&findName, "name", "n", "", "session name to look up")
	findCmd.Flags().StringVar(&findAddr, "addr", "", "multicast address to look up")
	findCmd.Flags().IntVar(&findPort, "port", 0, "RTP port (0 matches any port)")
}

func runFindCommand() {
	if findName == "" && findAddr == "" {
		exitWithError("either --name or --addr is required", nil)
	}

	client := command.NewUDSClient(socketPath, 10*time.Second)
	ctx := context.Background()

	resp, err := client.StreamFind(ctx, command.StreamFindParams{
		Name:    findName,
		Address: findAddr,
		Port:    findPort,
	})
	if err != nil {
		exitWithError("failed to query stream", err)
	}

	if resp.Error != nil {
		exitWithError(fmt.Sprintf("stream_find failed: %s", resp.Error.Message), nil)
	}

	resultJSON, err := json.MarshalIndent(resp.Result, "", "  ")
	if err != nil {
		exitWithError("failed to format result", err)
	}

	fmt.Println(string(resultJSON))
}
