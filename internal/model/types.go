// Package model defines the domain types for the linkboot CLI.
//
// The entities here are deliberately small: a boot run has no persistent
// state of its own. Redirect rules live in the kernel's NAT table, serial
// settings live in the tty driver, and the manager's identity lives in its
// PID file. These types are the in-memory representations used to pass that
// state between packages.
package model

import (
	"fmt"
	"strings"
)

// ManagerState represents the observed lifecycle state of the PrusaLink
// manager process, reconstructed from its PID file and a liveness probe.
//
//	[no pid file] → StateStopped
//	[pid file, process alive] → StateRunning
//	[pid file, process gone] → StateStale
type ManagerState string

const (
	// StateRunning indicates the PID file exists and the process answers
	// a signal-0 probe.
	StateRunning ManagerState = "running"

	// StateStopped indicates no PID file exists.
	StateStopped ManagerState = "stopped"

	// StateStale indicates a PID file exists but the process it names is
	// gone. This is the leftover of an unclean shutdown and is safe to
	// clear before a new launch.
	StateStale ManagerState = "stale"
)

// String returns the string representation of ManagerState.
// This satisfies fmt.Stringer for CLI output and logging.
func (s ManagerState) String() string {
	return string(s)
}

// IsValid checks whether the ManagerState value is one of the
// predefined valid states.
func (s ManagerState) IsValid() bool {
	switch s {
	case StateRunning, StateStopped, StateStale:
		return true
	default:
		return false
	}
}

// RedirectRule describes a single NAT redirect rule: TCP traffic arriving
// on (or leaving via) an interface with the given destination port is
// redirected to the target port on the same host.
//
// Chain is either "PREROUTING" (externally arriving packets, matched by
// input interface) or "OUTPUT" (locally generated packets, matched by
// output interface — used for the loopback redirect so that
// http://localhost works the same as external access).
type RedirectRule struct {
	// Chain is the NAT table chain the rule is inserted into.
	Chain string `json:"chain"`

	// Interface is the interface name the rule matches. For PREROUTING
	// rules this is the input interface (-i); for OUTPUT rules it is the
	// output interface (-o).
	Interface string `json:"interface"`

	// DestPort is the destination port the rule matches (the public
	// HTTP port, 80 in the default configuration).
	DestPort int `json:"destPort"`

	// ToPort is the port traffic is redirected to (the port the
	// PrusaLink web server actually listens on, 8080 by default).
	ToPort int `json:"toPort"`
}

// Validate checks the rule's fields for sane values.
func (r *RedirectRule) Validate() error {
	switch r.Chain {
	case "PREROUTING", "OUTPUT":
	default:
		return fmt.Errorf("redirect rule: invalid chain %q (valid: PREROUTING, OUTPUT)", r.Chain)
	}
	if r.Interface == "" {
		return fmt.Errorf("redirect rule: interface must not be empty")
	}
	if r.DestPort < 1 || r.DestPort > 65535 {
		return fmt.Errorf("redirect rule: destination port %d out of range (1-65535)", r.DestPort)
	}
	if r.ToPort < 1 || r.ToPort > 65535 {
		return fmt.Errorf("redirect rule: target port %d out of range (1-65535)", r.ToPort)
	}
	return nil
}

// String returns a human-readable representation of the rule.
// Format: "PREROUTING wlan0 tcp/80 → 8080"
func (r *RedirectRule) String() string {
	return fmt.Sprintf("%s %s tcp/%d → %d", r.Chain, r.Interface, r.DestPort, r.ToPort)
}

// SerialSettings holds the configuration applied to the printer's serial
// line before anything is written to it.
type SerialSettings struct {
	// Device is the serial device path (e.g., "/dev/ttyAMA0").
	Device string `json:"device"`

	// Baud is the line speed in bits per second. Must be one of the
	// rates the tty driver supports; 115200 for Prusa printers.
	Baud int `json:"baud"`
}

// Validate checks the serial settings for usable values. Baud rate
// support is verified by the serial package against the termios table;
// here we only reject the obviously wrong.
func (s *SerialSettings) Validate() error {
	if s.Device == "" {
		return fmt.Errorf("serial settings: device path must not be empty")
	}
	if s.Baud <= 0 {
		return fmt.Errorf("serial settings: baud rate %d must be positive", s.Baud)
	}
	return nil
}

// ProcessStatus is the liveness report for one managed process (the
// manager itself or a registered printer instance), as shown by the
// status command.
type ProcessStatus struct {
	// Name is the human-readable identifier ("manager" or the printer
	// name from the instance registry).
	Name string `json:"name"`

	// PIDFile is the path of the PID file that was inspected.
	PIDFile string `json:"pidFile"`

	// PID is the process id read from the file, or 0 when no file exists.
	PID int `json:"pid,omitempty"`

	// State is the observed lifecycle state.
	State ManagerState `json:"state"`
}

// SanitizeDisplayMessage reduces a printer display message to a single
// line of printable ASCII. The M117 command takes the rest of the line
// verbatim, so control characters or a stray newline would corrupt the
// G-code stream.
func SanitizeDisplayMessage(msg string) string {
	var b strings.Builder
	for _, r := range msg {
		if r == '\n' || r == '\r' {
			break
		}
		if r < 0x20 || r > 0x7e {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// ExitCode defines standard CLI exit codes. These codes allow the service
// supervisor (systemd unit) and scripts to programmatically determine the
// outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates the boot configuration or instance
	// registry could not be loaded or failed validation.
	ExitConfigError ExitCode = 2

	// ExitFirewallError indicates a NAT redirect rule could not be
	// installed, probed, or removed.
	ExitFirewallError ExitCode = 3

	// ExitSerialError indicates the serial device could not be opened,
	// configured, or written to.
	ExitSerialError ExitCode = 4

	// ExitUserError indicates the target user or their site-packages
	// directory could not be resolved.
	ExitUserError ExitCode = 5

	// ExitManagerError indicates the manager process could not be
	// launched or stopped.
	ExitManagerError ExitCode = 6

	// ExitNotRunning indicates a process the command operates on was
	// not running.
	ExitNotRunning ExitCode = 7
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
// This follows Go's error wrapping convention introduced in Go 1.13.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
