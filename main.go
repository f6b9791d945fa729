// Package main is the entry point for the aes67-agent stream discovery daemon.
package main

import (
	"fmt"
	"os"

	"icc.tech/aes67-agent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
