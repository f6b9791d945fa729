// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	socketPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "aes67-agent",
	Short: "AES67 agent - SAP/SDP stream discovery for professional audio networks",
	Long: `aes67-agent discovers AES67 / SMPTE ST 2110-30 audio streams by listening
to SAP announcements (RFC 2974) on the local network, parsing the carried SDP
session descriptions, and tracking every announced stream in a registry with
aging and expiry.

Features:
  - SAP listener on the admin-scope or global SAP multicast group
  - ST 2110-30 aware SDP parsing: channel order, PTP reference clock, conformance level
  - Stream registry with expiry sweep and lifecycle events
  - Local control: CLI via Unix Domain Socket
  - SAP announcer for test streams`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/aes67-agent/config.yml",
		"config file path")
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", "/var/run/aes67-agent.sock",
		"daemon socket path")

	// Add subcommands
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(streamsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(announceCmd)
	rootCmd.AddCommand(validateCmd)
}

// exitWithError prints error message and exits with code 1
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
