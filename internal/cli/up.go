// Package cli — up.go implements the "linkboot up" command.
//
// The up command is the boot entry point, invoked by the service unit.
// It performs the full boot sequence:
//
//  1. Load the boot configuration
//  2. Install the NAT redirect rules (port 80 → service port)
//  3. Configure the serial line and show the startup message
//  4. Resolve the PrusaLink user and site-packages path
//  5. Prepare the run directory, owned by the resolved user
//  6. Run the boot hook executable, if installed
//  7. Launch prusalink-manager, clearing a stale PID file first
//
// Firewall and serial failures are warnings by default: a missing wlan0
// or an unplugged printer must not prevent the manager from starting.
// --strict makes every step fatal. A manager launch failure is always
// fatal — without the manager there is no PrusaLink.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/prusalink-community/linkboot/internal/firewall"
	"github.com/prusalink-community/linkboot/internal/manager"
	"github.com/prusalink-community/linkboot/internal/model"
	"github.com/prusalink-community/linkboot/internal/serial"
	"github.com/prusalink-community/linkboot/internal/sitepath"
)

// upFlags holds the flag values for the up command.
type upFlags struct {
	strict       bool // --strict: treat firewall/serial failures as fatal
	noNotify     bool // --no-notify: skip serial configuration and message
	skipRedirect bool // --skip-redirect: skip NAT rule installation
}

// NewUpCommand creates the "up" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewUpCommand() *cobra.Command {
	flags := &upFlags{}

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Run the full boot sequence and launch the manager",
		Long: `Run the full PrusaLink boot sequence.

Installs the HTTP redirect rules, configures the printer's serial line,
shows the startup message on the printer display, and launches
prusalink-manager with the resolved per-user Python environment.

Examples:
  linkboot up
  linkboot up --strict
  linkboot up --no-notify --skip-redirect`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd.Context(), flags)
		},
	}

	cmd.Flags().BoolVar(&flags.strict, "strict", false, "Fail on firewall or serial errors instead of warning")
	cmd.Flags().BoolVar(&flags.noNotify, "no-notify", false, "Skip serial line setup and printer display message")
	cmd.Flags().BoolVar(&flags.skipRedirect, "skip-redirect", false, "Skip NAT redirect rule installation")

	return cmd
}

// runUp is the main orchestration function for the up command.
func runUp(ctx context.Context, flags *upFlags) error {
	// Step 1: Load configuration.
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var warnings []string

	// Step 2: Install the NAT redirect rules.
	if !flags.skipRedirect {
		installer := firewall.NewInstaller()
		if _, err := installer.Install(ctx, cfg.RedirectRules()); err != nil {
			if flags.strict {
				return err
			}
			log.Warn().Err(err).Msg("redirect rule installation failed, continuing")
			warnings = append(warnings, fmt.Sprintf("redirect: %v", err))
		}
	}

	// Step 3: Configure the serial line and show the startup message.
	// Configuration happens inside serial.Open, before the write.
	if !flags.noNotify {
		if err := notifyPrinter(cfg.SerialSettings(), cfg.Serial.Message); err != nil {
			if flags.strict {
				return err
			}
			log.Warn().Err(err).Msg("printer notification failed, continuing")
			warnings = append(warnings, fmt.Sprintf("notify: %v", err))
		}
	}

	// Step 4: Resolve the PrusaLink account and site-packages path.
	acct, err := sitepath.ResolveAccount(cfg.User.Username, cfg.User.UID)
	if err != nil {
		return err
	}
	log.Debug().Str("user", acct.Username).Str("home", acct.Home).Msg("account resolved")

	site, err := sitepath.UserSite(ctx, acct)
	if err != nil {
		return err
	}
	log.Debug().Str("site", site).Msg("site-packages resolved")

	// Step 5: Prepare the run directory so the manager can write its
	// PID file after dropping privileges.
	if err := manager.EnsureRunDirectory(cfg.Manager.RunDirectory, acct); err != nil {
		return err
	}

	// Step 6: Boot hook, then manager launch. The hook runs first and
	// synchronously — it prepares state the manager expects.
	launcher := manager.NewLauncher(&cfg.Manager)
	if err := launcher.RunBootHook(ctx); err != nil {
		return err
	}
	if err := launcher.Launch(ctx, acct, site); err != nil {
		return err
	}

	printUpResult(acct.Username, site, warnings)
	return nil
}

// notifyPrinter opens the serial device (applying line settings) and
// writes the display message. Split out so up and notify share it.
func notifyPrinter(settings model.SerialSettings, message string) error {
	port, err := serial.Open(settings)
	if err != nil {
		return err
	}
	defer func() { _ = port.Close() }()

	return port.Notify(message)
}

// printUpResult outputs the up command results in text or JSON format.
func printUpResult(username, site string, warnings []string) {
	if IsJSONOutput() {
		result := map[string]interface{}{
			"action":       "started",
			"user":         username,
			"sitePackages": site,
		}
		if len(warnings) > 0 {
			result["warnings"] = warnings
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Println("PrusaLink boot complete")
	fmt.Printf("  User:          %s\n", username)
	fmt.Printf("  Site-packages: %s\n", site)
	for _, w := range warnings {
		fmt.Printf("  Warning:       %s\n", w)
	}
}
