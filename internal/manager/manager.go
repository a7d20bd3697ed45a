// Package manager launches, stops, and inspects the PrusaLink manager
// process and the printer instances it spawns.
//
// The manager daemonizes itself, so a launch is a synchronous run of the
// manager binary: it forks, writes its PID file, and the launcher's call
// returns. All later lifecycle operations go through PID files and
// signals — the same discipline the manager's own front-end uses:
// read the PID, probe liveness with signal 0, SIGTERM to stop, and clear
// a PID file only when its process is provably gone.
package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/prusalink-community/linkboot/internal/config"
	"github.com/prusalink-community/linkboot/internal/model"
	"github.com/prusalink-community/linkboot/internal/sitepath"
)

// stopPollInterval is how often a stop operation re-probes a SIGTERM'd
// process while waiting for it to exit.
const stopPollInterval = 100 * time.Millisecond

// ReadPID parses a PID file. A missing file returns (0, false, nil):
// "not running" is a normal state, not an error.
func ReadPID(path string) (int, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read pid file %s: %w", path, err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false, fmt.Errorf("pid file %s does not contain a pid: %q", path, strings.TrimSpace(string(data)))
	}
	return pid, true, nil
}

// Alive reports whether a process with the given pid exists. Signal 0
// performs the permission and existence checks without delivering
// anything. EPERM means the process exists but belongs to someone else —
// still alive for our purposes.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return err == syscall.EPERM
}

// Inspect reports the lifecycle state behind a PID file.
func Inspect(name, pidFile string) (model.ProcessStatus, error) {
	status := model.ProcessStatus{Name: name, PIDFile: pidFile, State: model.StateStopped}

	pid, found, err := ReadPID(pidFile)
	if err != nil {
		return status, err
	}
	if !found {
		return status, nil
	}

	status.PID = pid
	if Alive(pid) {
		status.State = model.StateRunning
	} else {
		status.State = model.StateStale
	}
	return status, nil
}

// ClearStale removes a PID file left behind by an unclean shutdown.
// Removing the PID file of a live process is refused: that would let a
// second manager start next to the first.
func ClearStale(pidFile string) error {
	pid, found, err := ReadPID(pidFile)
	if err != nil {
		// An unparseable file cannot name a live process; treat it as
		// stale and remove it.
		log.Warn().Str("pidFile", pidFile).Err(err).Msg("removing unreadable pid file")
		return removePIDFile(pidFile)
	}
	if !found {
		return nil
	}

	if Alive(pid) {
		return model.NewCLIError(model.ExitManagerError,
			fmt.Sprintf("manager already running with pid %d (pid file %s)", pid, pidFile))
	}

	log.Info().Int("pid", pid).Str("pidFile", pidFile).Msg("clearing stale pid file")
	return removePIDFile(pidFile)
}

func removePIDFile(pidFile string) error {
	if err := os.Remove(pidFile); err != nil && !os.IsNotExist(err) {
		return model.WrapCLIError(model.ExitManagerError,
			fmt.Sprintf("failed to remove pid file %s", pidFile), err)
	}
	return nil
}

// EnsureRunDirectory creates the run directory and hands its ownership to
// the account the manager runs as, so the daemon can write its PID file
// after dropping privileges.
func EnsureRunDirectory(dir string, acct *sitepath.Account) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.WrapCLIError(model.ExitManagerError,
			fmt.Sprintf("failed to create run directory %s", dir), err)
	}
	if err := os.Chown(dir, acct.UID, acct.GID); err != nil {
		return model.WrapCLIError(model.ExitManagerError,
			fmt.Sprintf("failed to chown run directory %s to %s", dir, acct.Username), err)
	}
	return nil
}

// Launcher starts the manager process with a resolved Python environment.
type Launcher struct {
	cfg *config.ManagerConfig
}

// NewLauncher creates a Launcher for the given manager configuration.
func NewLauncher(cfg *config.ManagerConfig) *Launcher {
	return &Launcher{cfg: cfg}
}

// RunBootHook runs the boot hook executable synchronously. The hook is
// optional firmware/system preparation shipped separately from linkboot;
// a hook that is not installed is skipped, a hook that fails is fatal.
func (l *Launcher) RunBootHook(ctx context.Context) error {
	hook := l.cfg.BootHook
	if hook == "" {
		return nil
	}
	if _, err := exec.LookPath(hook); err != nil {
		log.Debug().Str("hook", hook).Msg("boot hook not installed, skipping")
		return nil
	}

	log.Info().Str("hook", hook).Msg("running boot hook")
	// #nosec G204 — hook path comes from the boot configuration
	cmd := exec.CommandContext(ctx, hook)
	out, err := cmd.CombinedOutput()
	if err != nil {
		message := fmt.Sprintf("boot hook %s failed", hook)
		if trimmed := strings.TrimSpace(string(out)); trimmed != "" {
			message = fmt.Sprintf("%s: %s", message, trimmed)
		}
		return model.WrapCLIError(model.ExitManagerError, message, err)
	}
	return nil
}

// LaunchArgs builds the manager's argument vector: the account to run
// under, the executable prefix for spawned instances, and the start
// subcommand.
func LaunchArgs(acct *sitepath.Account, site string) []string {
	return []string{"-u", acct.Username, "-p", sitepath.ExecPrefix(acct, site), "start"}
}

// Launch starts the manager. The stale PID file is cleared first (a live
// one aborts), then the manager binary is run with:
//
//	prusalink-manager -u <username> -p <prefix> start
//
// and PYTHONOPTIMIZE=2 / PYTHONPATH=<site> in its environment. The
// manager detaches itself, so a zero exit here means the daemon is up.
func (l *Launcher) Launch(ctx context.Context, acct *sitepath.Account, site string) error {
	if err := ClearStale(l.cfg.PIDFile); err != nil {
		return err
	}

	args := LaunchArgs(acct, site)

	log.Info().
		Str("executable", l.cfg.Executable).
		Str("user", acct.Username).
		Str("pythonPath", site).
		Msg("launching manager")

	// #nosec G204 — executable and arguments come from configuration
	// and resolved system state, not request input
	cmd := exec.CommandContext(ctx, l.cfg.Executable, args...)
	cmd.Env = append(os.Environ(),
		"PYTHONOPTIMIZE=2",
		"PYTHONPATH="+site,
	)

	out, err := cmd.CombinedOutput()
	if err != nil {
		message := fmt.Sprintf("failed to launch %s", l.cfg.Executable)
		if trimmed := strings.TrimSpace(string(out)); trimmed != "" {
			message = fmt.Sprintf("%s: %s", message, trimmed)
		}
		return model.WrapCLIError(model.ExitManagerError, message, err)
	}
	return nil
}

// Stop terminates the process behind a PID file: SIGTERM, then poll until
// the process is gone or the timeout elapses. It returns the observed
// status before the stop. A stopped or stale entry is reported via
// ExitNotRunning so callers can decide whether that is an error.
func Stop(ctx context.Context, name, pidFile string, timeout time.Duration) (model.ProcessStatus, error) {
	status, err := Inspect(name, pidFile)
	if err != nil {
		return status, model.WrapCLIError(model.ExitManagerError,
			fmt.Sprintf("failed to inspect %s", name), err)
	}

	if status.State != model.StateRunning {
		return status, model.NewCLIError(model.ExitNotRunning,
			fmt.Sprintf("%s not running", name))
	}

	log.Info().Str("process", name).Int("pid", status.PID).Msg("sending SIGTERM")
	if err := syscall.Kill(status.PID, syscall.SIGTERM); err != nil {
		return status, model.WrapCLIError(model.ExitManagerError,
			fmt.Sprintf("failed to signal %s (pid %d)", name, status.PID), err)
	}

	deadline := time.Now().Add(timeout)
	for Alive(status.PID) {
		if time.Now().After(deadline) {
			return status, model.NewCLIError(model.ExitManagerError,
				fmt.Sprintf("%s (pid %d) did not exit within %s", name, status.PID, timeout))
		}
		select {
		case <-ctx.Done():
			return status, model.WrapCLIError(model.ExitManagerError,
				fmt.Sprintf("interrupted while waiting for %s to exit", name), ctx.Err())
		case <-time.After(stopPollInterval):
		}
	}

	log.Info().Str("process", name).Int("pid", status.PID).Msg("process stopped")
	return status, nil
}

// StopAll stops the manager and every registered printer instance,
// tolerating entries that are not running. It returns the statuses
// observed and the first hard failure, if any.
func StopAll(ctx context.Context, cfg *config.Config, reg *config.Registry) ([]model.ProcessStatus, error) {
	type target struct {
		name    string
		pidFile string
	}

	targets := []target{{name: "manager", pidFile: cfg.Manager.PIDFile}}
	for _, p := range reg.Printers {
		targets = append(targets, target{name: p.Name, pidFile: p.PIDFile})
	}

	statuses := make([]model.ProcessStatus, 0, len(targets))
	var firstErr error
	for _, t := range targets {
		status, err := Stop(ctx, t.name, t.pidFile, cfg.Manager.StopTimeout())
		statuses = append(statuses, status)
		if err != nil {
			var cliErr *model.CLIError
			if errors.As(err, &cliErr) && cliErr.Code == model.ExitNotRunning {
				log.Warn().Str("process", t.name).Msg("not running")
				continue
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return statuses, firstErr
}
