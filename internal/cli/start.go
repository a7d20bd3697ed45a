// Package cli — start.go implements the "linkboot start" command.
//
// The start command is the manager-launch tail of "up": resolve the
// account and site-packages path, prepare the run directory, run the boot
// hook, clear a stale PID file, launch prusalink-manager. It skips the
// firewall and serial steps, which is what an operator restarting a
// stopped manager wants.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/prusalink-community/linkboot/internal/manager"
	"github.com/prusalink-community/linkboot/internal/sitepath"
)

// NewStartCommand creates the "start" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Launch the PrusaLink manager",
		Long: `Launch prusalink-manager with the resolved per-user Python environment.

A stale PID file left by an unclean shutdown is cleared first; a running
manager aborts the launch. Network and serial setup are not touched —
use "linkboot up" for the full boot sequence.

Examples:
  linkboot start
  linkboot start --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd.Context())
		},
	}

	return cmd
}

// runStart is the main logic function for the start command.
func runStart(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Step 1: Resolve the account and its site-packages directory.
	acct, err := sitepath.ResolveAccount(cfg.User.Username, cfg.User.UID)
	if err != nil {
		return err
	}

	site, err := sitepath.UserSite(ctx, acct)
	if err != nil {
		return err
	}
	log.Debug().Str("user", acct.Username).Str("site", site).Msg("environment resolved")

	// Step 2: Run directory, boot hook, launch.
	if err := manager.EnsureRunDirectory(cfg.Manager.RunDirectory, acct); err != nil {
		return err
	}

	launcher := manager.NewLauncher(&cfg.Manager)
	if err := launcher.RunBootHook(ctx); err != nil {
		return err
	}
	if err := launcher.Launch(ctx, acct, site); err != nil {
		return err
	}

	printStartResult(acct.Username, site)
	return nil
}

// printStartResult outputs the start result in text or JSON format.
func printStartResult(username, site string) {
	if IsJSONOutput() {
		result := map[string]interface{}{
			"action":       "started",
			"user":         username,
			"sitePackages": site,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Manager started for user %q (PYTHONPATH=%s)\n", username, site)
}
