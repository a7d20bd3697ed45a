// Package cli — redirect.go implements the "linkboot redirect" command.
//
// The redirect command manages the NAT rules that make the PrusaLink web
// interface reachable on the standard HTTP port. It exists separately
// from "up" so operators can repair or remove the rules without touching
// the serial line or the manager.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prusalink-community/linkboot/internal/firewall"
)

// NewRedirectCommand creates the "redirect" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewRedirectCommand() *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "redirect",
		Short: "Install or remove the HTTP port redirect rules",
		Long: `Install the NAT rules redirecting HTTP port 80 to the PrusaLink service port.

Installation is idempotent: rules already present are left untouched, so
the command is safe to run on every boot. With --remove, the rules are
deleted; rules that are not present are tolerated.

Examples:
  linkboot redirect
  linkboot redirect --remove
  linkboot redirect --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runRedirect(cmd.Context(), remove)
		},
	}

	cmd.Flags().BoolVar(&remove, "remove", false, "Remove the redirect rules instead of installing them")

	return cmd
}

// runRedirect is the main logic function for the redirect command.
func runRedirect(ctx context.Context, remove bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	installer := firewall.NewInstaller()
	rules := cfg.RedirectRules()

	var results []firewall.RuleResult
	if remove {
		results, err = installer.Remove(ctx, rules)
	} else {
		results, err = installer.Install(ctx, rules)
	}
	if err != nil {
		return err
	}

	printRedirectResult(results)
	return nil
}

// printRedirectResult outputs one line (or JSON entry) per rule with the
// action taken.
func printRedirectResult(results []firewall.RuleResult) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(map[string]interface{}{"rules": results}, "", "  ")
		fmt.Println(string(data))
		return
	}

	for _, r := range results {
		fmt.Printf("%-10s %s\n", r.Action, r.Rule.String())
	}
}
