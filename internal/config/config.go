// Package config loads the linkboot boot configuration and the
// multi-instance printer registry.
//
// The boot configuration lives at /etc/prusalink/boot.json and is JSONC
// (JSON with Comments): installations are hand-edited, so comments and
// trailing commas are tolerated via github.com/tidwall/jsonc before parsing
// with the standard encoding/json library. Every field is optional; the
// defaults reproduce the stock PrusaLink image literals (wlan0/eth0 port 80
// redirected to 8080, /dev/ttyAMA0 at 115200, uid 1000,
// /run/prusalink/manager.pid).
//
// The instance registry lives at /etc/prusalink/instances.yaml and lists
// the printers managed as separate PrusaLink instances; see registry.go.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/prusalink-community/linkboot/internal/model"
	"github.com/prusalink-community/linkboot/internal/serial"
)

// Well-known paths for a PrusaLink installation. The config file can move
// everything except itself (the --config flag moves that).
const (
	// DefaultConfigPath is where `linkboot` looks for its boot
	// configuration unless --config overrides it.
	DefaultConfigPath = "/etc/prusalink/boot.json"

	// DefaultRegistryPath is where the multi-instance printer registry
	// is expected. A missing registry simply means "no extra instances".
	DefaultRegistryPath = "/etc/prusalink/instances.yaml"

	// DefaultRunDirectory holds PID files and sockets for the manager
	// and its instances. Created on boot if absent (tmpfs on most hosts).
	DefaultRunDirectory = "/run/prusalink"

	// DefaultManagerPIDFile is the manager daemon's PID file. A stale
	// copy left by an unclean shutdown is cleared before launch.
	DefaultManagerPIDFile = "/run/prusalink/manager.pid"
)

// Defaults reproducing the stock boot script.
const (
	defaultDevice        = "/dev/ttyAMA0"
	defaultBaud          = 115200
	defaultMessage       = "Starting PrusaLink"
	defaultHTTPPort      = 80
	defaultTargetPort    = 8080
	defaultLoopback      = "lo"
	defaultUID           = 1000
	defaultManagerBinary = "prusalink-manager"
	defaultBootHook      = "prusalink-boot"
	defaultStopTimeout   = 10 * time.Second
)

// defaultInterfaces are the ingress interfaces that get a PREROUTING
// redirect rule. Order matters: rules are installed in this order and the
// test properties check it.
var defaultInterfaces = []string{"wlan0", "eth0"}

// Config is the parsed boot configuration. Zero values in the file are
// replaced with defaults during Load, so a missing or empty file yields a
// fully usable configuration identical to the stock image.
type Config struct {
	// Serial configures the printer's serial line.
	Serial SerialConfig `json:"serial"`

	// Redirect configures the HTTP port NAT redirect rules.
	Redirect RedirectConfig `json:"redirect"`

	// Manager configures the manager process launch and lifecycle.
	Manager ManagerConfig `json:"manager"`

	// User selects the account PrusaLink runs under. UID is used unless
	// Username is set.
	User UserConfig `json:"user"`
}

// SerialConfig configures the serial line initializer and notifier.
type SerialConfig struct {
	// Device is the serial device path.
	Device string `json:"device"`

	// Baud is the line speed in bits per second.
	Baud int `json:"baud"`

	// Message is the startup text shown on the printer display via M117.
	Message string `json:"message"`
}

// RedirectConfig configures the NAT redirect rules installed on boot.
type RedirectConfig struct {
	// Interfaces are the ingress interfaces receiving PREROUTING rules,
	// in installation order.
	Interfaces []string `json:"interfaces"`

	// Loopback is the interface for the OUTPUT redirect rule, so locally
	// generated requests to port 80 reach the service too.
	Loopback string `json:"loopback"`

	// HTTPPort is the public destination port matched by the rules.
	HTTPPort int `json:"httpPort"`

	// TargetPort is the port traffic is redirected to.
	TargetPort int `json:"targetPort"`
}

// ManagerConfig configures how the manager process is launched and stopped.
type ManagerConfig struct {
	// Executable is the manager binary name or path.
	Executable string `json:"executable"`

	// BootHook is an executable run synchronously before the manager is
	// launched. A missing hook is not an error.
	BootHook string `json:"bootHook"`

	// PIDFile is the manager daemon's PID file path.
	PIDFile string `json:"pidFile"`

	// RunDirectory is created (with ownership handed to the resolved
	// user) before launch.
	RunDirectory string `json:"runDirectory"`

	// StopTimeoutSeconds bounds how long `linkboot stop` waits for a
	// SIGTERM'd process to exit before reporting failure.
	StopTimeoutSeconds int `json:"stopTimeoutSeconds"`
}

// StopTimeout returns the stop timeout as a duration.
func (m *ManagerConfig) StopTimeout() time.Duration {
	if m.StopTimeoutSeconds <= 0 {
		return defaultStopTimeout
	}
	return time.Duration(m.StopTimeoutSeconds) * time.Second
}

// UserConfig selects the account the PrusaLink processes run under.
type UserConfig struct {
	// UID is resolved through the passwd database when Username is empty.
	UID int `json:"uid"`

	// Username, when set, takes precedence over UID.
	Username string `json:"username,omitempty"`
}

// Default returns a configuration equivalent to the stock PrusaLink image.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads, parses, and validates the boot configuration at path.
//
// A missing file is not an error: the defaults describe a stock
// installation and the boot must proceed without /etc being customized.
// A file that exists but cannot be read or parsed is a config error —
// silently booting with defaults would mask a typo in a hand-edited file.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to read config %s", path), err)
	}

	return Parse(data, path)
}

// Parse parses JSONC configuration bytes. The path parameter is used only
// for error messages.
func Parse(data []byte, path string) (*Config, error) {
	// Strip JSONC comments (// and /* */) and trailing commas before
	// parsing. Hand-edited files frequently contain both.
	cleanJSON := jsonc.ToJSON(data)

	var cfg Config
	if err := json.Unmarshal(cleanJSON, &cfg); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to parse config %s", path), err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("invalid config %s", path), err)
	}

	return &cfg, nil
}

// applyDefaults fills every zero-valued field with the stock literal.
func (c *Config) applyDefaults() {
	if c.Serial.Device == "" {
		c.Serial.Device = defaultDevice
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = defaultBaud
	}
	if c.Serial.Message == "" {
		c.Serial.Message = defaultMessage
	}
	if len(c.Redirect.Interfaces) == 0 {
		c.Redirect.Interfaces = append([]string(nil), defaultInterfaces...)
	}
	if c.Redirect.Loopback == "" {
		c.Redirect.Loopback = defaultLoopback
	}
	if c.Redirect.HTTPPort == 0 {
		c.Redirect.HTTPPort = defaultHTTPPort
	}
	if c.Redirect.TargetPort == 0 {
		c.Redirect.TargetPort = defaultTargetPort
	}
	if c.Manager.Executable == "" {
		c.Manager.Executable = defaultManagerBinary
	}
	if c.Manager.BootHook == "" {
		c.Manager.BootHook = defaultBootHook
	}
	if c.Manager.PIDFile == "" {
		c.Manager.PIDFile = DefaultManagerPIDFile
	}
	if c.Manager.RunDirectory == "" {
		c.Manager.RunDirectory = DefaultRunDirectory
	}
	if c.Manager.StopTimeoutSeconds == 0 {
		c.Manager.StopTimeoutSeconds = int(defaultStopTimeout / time.Second)
	}
	if c.User.UID == 0 && c.User.Username == "" {
		c.User.UID = defaultUID
	}
}

// Validate checks the configuration for values that cannot work.
// Defaults are applied before validation, so only explicit bad values
// can fail here.
func (c *Config) Validate() error {
	settings := c.SerialSettings()
	if err := settings.Validate(); err != nil {
		return err
	}
	// Reject unsupported baud rates at load time. Without this check a
	// typo like 115201 would only surface on the first command that
	// touches the serial line, with a serial-error exit code instead of
	// a config one.
	if _, err := serial.SpeedConstant(c.Serial.Baud); err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	for _, rule := range c.RedirectRules() {
		if err := rule.Validate(); err != nil {
			return err
		}
	}
	if c.Manager.StopTimeoutSeconds < 0 {
		return fmt.Errorf("manager: stop timeout must not be negative")
	}
	if c.User.UID < 0 {
		return fmt.Errorf("user: uid must not be negative")
	}
	return nil
}

// SerialSettings returns the serial line settings as a domain value.
func (c *Config) SerialSettings() model.SerialSettings {
	return model.SerialSettings{
		Device: c.Serial.Device,
		Baud:   c.Serial.Baud,
	}
}

// RedirectRules expands the redirect configuration into the concrete rule
// list, in installation order: one PREROUTING rule per ingress interface,
// then the OUTPUT rule for loopback.
func (c *Config) RedirectRules() []model.RedirectRule {
	rules := make([]model.RedirectRule, 0, len(c.Redirect.Interfaces)+1)
	for _, iface := range c.Redirect.Interfaces {
		rules = append(rules, model.RedirectRule{
			Chain:     "PREROUTING",
			Interface: iface,
			DestPort:  c.Redirect.HTTPPort,
			ToPort:    c.Redirect.TargetPort,
		})
	}
	rules = append(rules, model.RedirectRule{
		Chain:     "OUTPUT",
		Interface: c.Redirect.Loopback,
		DestPort:  c.Redirect.HTTPPort,
		ToPort:    c.Redirect.TargetPort,
	})
	return rules
}
