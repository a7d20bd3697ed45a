// Package cli — stop.go implements the "linkboot stop" command.
//
// The stop command brings down the manager and every printer instance
// listed in the instance registry. Each process is sent SIGTERM through
// its PID file and given a bounded wait to exit. Entries that are not
// running are reported, not failed on — stop must be safe to run twice.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prusalink-community/linkboot/internal/config"
	"github.com/prusalink-community/linkboot/internal/manager"
	"github.com/prusalink-community/linkboot/internal/model"
)

// NewStopCommand creates the "stop" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewStopCommand() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the manager and all printer instances",
		Long: `Stop the PrusaLink manager and every instance in the registry.

Each process is sent SIGTERM via its PID file and given the configured
timeout to exit. Processes that are not running are tolerated.

Examples:
  linkboot stop
  linkboot stop --quiet`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runStopCmd(cmd.Context(), quiet)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress \"not running\" notices")

	return cmd
}

// runStopCmd is the main logic function for the stop command.
func runStopCmd(ctx context.Context, quiet bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg, err := config.LoadRegistry("")
	if err != nil {
		return err
	}

	statuses, err := manager.StopAll(ctx, cfg, reg)
	if err != nil {
		return err
	}

	printStopResult(statuses, quiet)
	return nil
}

// printStopResult outputs the stop result in text or JSON format.
func printStopResult(statuses []model.ProcessStatus, quiet bool) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(map[string]interface{}{
			"action":    "stopped",
			"processes": statuses,
		}, "", "  ")
		fmt.Println(string(data))
		return
	}

	for _, s := range statuses {
		if s.State == model.StateRunning {
			fmt.Printf("Stopped %s (pid %d)\n", s.Name, s.PID)
		} else if !quiet {
			fmt.Printf("%s not running\n", s.Name)
		}
	}
}
