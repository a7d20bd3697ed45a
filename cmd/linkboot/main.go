// Package main is the entry point for the linkboot CLI.
//
// This binary orchestrates the boot of a PrusaLink installation: HTTP
// port redirection, printer serial line setup, and the launch of the
// instance manager. It delegates all functionality to the internal/cli
// package, which defines cobra commands.
//
// Build-time variables (version, commit, date) are injected via ldflags
// by the release pipeline. During development, they default to "dev",
// "none", and "unknown" respectively.
package main

import (
	"github.com/prusalink-community/linkboot/internal/cli"
)

// version, commit, and date are set at build time via ldflags.
// They provide binary identification for the --version flag output.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Inject build-time version info into the CLI package. This
	// decouples the build system (ldflags) from the CLI framework
	// (cobra), keeping main.go minimal.
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	// Create the root command with all subcommands registered, then
	// execute it. Execute handles error formatting and exit codes.
	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
