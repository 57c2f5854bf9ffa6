// Package main is the entry point for the voxline CLI.
//
// Usage:
//
//	voxline [flags] <command> [args]
//
// Commands:
//
//	chat     - Start a live voice conversation
//	devices  - List audio capture/playback devices
//	config   - Configuration management (contexts)
//	version  - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/voxline/voxline/cmd/voxline/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
