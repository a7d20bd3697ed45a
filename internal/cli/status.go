// Package cli — status.go implements the "linkboot status" command.
//
// The status command reports the manager's lifecycle state and the state
// of every registered printer instance, reconstructed from their PID
// files. It never changes anything — safe for monitoring.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prusalink-community/linkboot/internal/config"
	"github.com/prusalink-community/linkboot/internal/manager"
	"github.com/prusalink-community/linkboot/internal/model"
)

// NewStatusCommand creates the "status" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report manager and instance liveness",
		Long: `Report the state of the PrusaLink manager and all registered instances.

Each entry is one of:
  running  — PID file exists and the process is alive
  stopped  — no PID file
  stale    — PID file exists but the process is gone

Examples:
  linkboot status
  linkboot status --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}

	return cmd
}

// runStatus is the main logic function for the status command.
func runStatus() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg, err := config.LoadRegistry("")
	if err != nil {
		return err
	}

	statuses := make([]model.ProcessStatus, 0, len(reg.Printers)+1)

	managerStatus, err := manager.Inspect("manager", cfg.Manager.PIDFile)
	if err != nil {
		return model.WrapCLIError(model.ExitManagerError, "failed to inspect manager", err)
	}
	statuses = append(statuses, managerStatus)

	for _, p := range reg.Printers {
		status, err := manager.Inspect(p.Name, p.PIDFile)
		if err != nil {
			return model.WrapCLIError(model.ExitManagerError,
				fmt.Sprintf("failed to inspect instance %q", p.Name), err)
		}
		statuses = append(statuses, status)
	}

	printStatusResult(statuses)
	return nil
}

// printStatusResult outputs the status report in text or JSON format.
func printStatusResult(statuses []model.ProcessStatus) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(map[string]interface{}{"processes": statuses}, "", "  ")
		fmt.Println(string(data))
		return
	}

	for _, s := range statuses {
		if s.PID > 0 {
			fmt.Printf("%-20s %-8s pid %d\n", s.Name, s.State, s.PID)
		} else {
			fmt.Printf("%-20s %-8s\n", s.Name, s.State)
		}
	}
}
