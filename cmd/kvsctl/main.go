// ============================================================================
// kvsctl - Main Entry Point
// ============================================================================
//
// File: cmd/kvsctl/main.go
// Purpose: Application entry point and CLI initialization
//
// Responsibilities:
//   1. Version Management - Inject build info via ldflags
//   2. Panic Recovery - Catch unexpected panics gracefully
//   3. CLI Setup - Build and configure Cobra command interface
//   4. Error Handling - Unified command execution error handling
//
// Usage:
//   ./kvsctl --help               # Show help
//   ./kvsctl get mykey            # Read a key
//   ./kvsctl set mykey i32 42     # Write a key
//   ./kvsctl flush                # Persist to disk
//
// ============================================================================

package main

import (
	"fmt"
	"os"

	"github.com/chuliyu-labs/kvstore-core/internal/cli"
)

var (
	version = "1.0.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Fatal error: %v\n", r)
			os.Exit(1)
		}
	}()

	rootCmd := cli.BuildCLI()
	rootCmd.Version = fmt.Sprintf("%s (commit=%s, built=%s)", version, commit, date)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
