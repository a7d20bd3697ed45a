package firewall

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/prusalink-community/linkboot/internal/model"
)

// RuleAction describes what Install or Remove did with one rule.
type RuleAction string

const (
	// ActionInstalled means the rule was absent and has been inserted.
	ActionInstalled RuleAction = "installed"

	// ActionPresent means the rule was already in the NAT table and was
	// left untouched.
	ActionPresent RuleAction = "present"

	// ActionRemoved means the rule was deleted from the NAT table.
	ActionRemoved RuleAction = "removed"

	// ActionAbsent means a removal found nothing to delete.
	ActionAbsent RuleAction = "absent"
)

// RuleResult pairs a rule with the action taken on it.
type RuleResult struct {
	Rule   model.RedirectRule `json:"rule"`
	Action RuleAction         `json:"action"`
}

// runFunc executes an external command and returns its combined output.
// It exists so tests can substitute a fake iptables.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Installer manages NAT redirect rules through the iptables binary.
type Installer struct {
	run runFunc
}

// NewInstaller creates an Installer that invokes the real iptables binary.
func NewInstaller() *Installer {
	return &Installer{run: runCommand}
}

// runCommand executes a command and returns its combined stdout/stderr.
// Combined output is what iptables diagnostics end up in either stream,
// and the caller folds it into wrapped errors.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Args builds the iptables argument vector for the given rule and
// operation flag (-C to check, -I to insert, -D to delete).
//
// PREROUTING rules match the input interface (-i); OUTPUT rules match the
// output interface (-o) — loopback packets are locally generated, so they
// traverse OUTPUT, never PREROUTING.
func Args(op string, rule model.RedirectRule) []string {
	ifaceFlag := "-i"
	if rule.Chain == "OUTPUT" {
		ifaceFlag = "-o"
	}
	return []string{
		"-t", "nat",
		op, rule.Chain,
		ifaceFlag, rule.Interface,
		"-p", "tcp",
		"--dport", strconv.Itoa(rule.DestPort),
		"-j", "REDIRECT",
		"--to-port", strconv.Itoa(rule.ToPort),
	}
}

// Present reports whether the rule is already in the NAT table.
// `iptables -C` exits 0 when the rule exists and 1 when it does not;
// any other failure (missing binary, no privileges) is a firewall error.
func (in *Installer) Present(ctx context.Context, rule model.RedirectRule) (bool, error) {
	out, err := in.run(ctx, "iptables", Args("-C", rule)...)
	if err == nil {
		return true, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, wrapRuleError("probe", rule, out, err)
}

// Install inserts every rule that is not already present, in order.
// It returns a result per rule; on error the results cover the rules
// processed before the failure.
func (in *Installer) Install(ctx context.Context, rules []model.RedirectRule) ([]RuleResult, error) {
	results := make([]RuleResult, 0, len(rules))
	for _, rule := range rules {
		exists, err := in.Present(ctx, rule)
		if err != nil {
			return results, err
		}
		if exists {
			log.Debug().Stringer("rule", &rule).Msg("redirect rule already present")
			results = append(results, RuleResult{Rule: rule, Action: ActionPresent})
			continue
		}

		if out, err := in.run(ctx, "iptables", Args("-I", rule)...); err != nil {
			return results, wrapRuleError("install", rule, out, err)
		}
		log.Info().Stringer("rule", &rule).Msg("redirect rule installed")
		results = append(results, RuleResult{Rule: rule, Action: ActionInstalled})
	}
	return results, nil
}

// Remove deletes every rule that is present. Absent rules are reported,
// not errors: removal must be safe to run on a host that never booted.
func (in *Installer) Remove(ctx context.Context, rules []model.RedirectRule) ([]RuleResult, error) {
	results := make([]RuleResult, 0, len(rules))
	for _, rule := range rules {
		exists, err := in.Present(ctx, rule)
		if err != nil {
			return results, err
		}
		if !exists {
			results = append(results, RuleResult{Rule: rule, Action: ActionAbsent})
			continue
		}

		if out, err := in.run(ctx, "iptables", Args("-D", rule)...); err != nil {
			return results, wrapRuleError("remove", rule, out, err)
		}
		log.Info().Stringer("rule", &rule).Msg("redirect rule removed")
		results = append(results, RuleResult{Rule: rule, Action: ActionRemoved})
	}
	return results, nil
}

// wrapRuleError folds iptables output into a CLIError so the message a
// user sees names the exact rule and the kernel's complaint.
func wrapRuleError(verb string, rule model.RedirectRule, output []byte, err error) error {
	message := fmt.Sprintf("failed to %s redirect rule [%s]", verb, rule.String())
	if trimmed := strings.TrimSpace(string(output)); trimmed != "" {
		message = fmt.Sprintf("%s: %s", message, trimmed)
	}
	return model.WrapCLIError(model.ExitFirewallError, message, err)
}
