// Package cmd implements CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"icc.tech/aes67-agent/internal/sdp"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate an SDP file",
	Long: `Parse an SDP session description without announcing it.

This is useful for pre-checking SDP files against the ST 2110-30 profile
before pushing them to a sender.

Examples:
  aes67-agent validate -f stream.sdp`,
	Run: func(cmd *cobra.Command, args []string) {
		runValidateCommand()
	},
}

var validateSDPFile string

func init() {
	validateCmd.Flags().StringVarP(&validateSDPFile, "file", "f", "",
		"SDP file to validate (required)")
	validateCmd.MarkFlagRequired("file")
}

func runValidateCommand() {
	data, err := os.ReadFile(validateSDPFile)
	if err != nil {
		exitWithError(fmt.Sprintf("failed to read file %s", validateSDPFile), err)
	}

	desc := sdp.Parse(string(data))
	if desc == nil {
		fmt.Fprintln(os.Stderr, "INVALID: no usable audio stream (missing c= address or m=audio port)")
		os.Exit(1)
	}

	fmt.Printf("VALID: %q — %s:%d, %s/%d/%d, ptime %g ms\n",
		desc.SessionName,
		desc.MulticastAddr,
		desc.Port,
		desc.Encoding,
		desc.SampleRate,
		desc.Channels,
		desc.PTime,
	)
	fmt.Printf("Channel labels: %v\n", desc.ChannelLabels)
	if desc.ConformanceLevel != "" {
		fmt.Printf("Conformance level: %s\n", desc.ConformanceLevel)
	} else {
		fmt.Println("Conformance level: none (outside ST 2110-30 constraints)")
	}
	if desc.PTPGrandmaster != "" {
		fmt.Printf("PTP: %s domain %d\n", desc.PTPGrandmaster, desc.PTPDomain)
	}
	if !desc.ST2110Compliant {
		fmt.Println("Warning: mediaclk offset is non-zero or missing")
	}
}
