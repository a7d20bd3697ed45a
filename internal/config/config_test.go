package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prusalink-community/linkboot/internal/model"
)

// TestDefault_ReproducesStockLiterals verifies that the zero-config
// defaults are exactly the stock PrusaLink image values: /dev/ttyAMA0 at
// 115200, "Starting PrusaLink", wlan0+eth0 port 80 → 8080, uid 1000,
// /run/prusalink/manager.pid.
func TestDefault_ReproducesStockLiterals(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "/dev/ttyAMA0", cfg.Serial.Device)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, "Starting PrusaLink", cfg.Serial.Message)

	assert.Equal(t, []string{"wlan0", "eth0"}, cfg.Redirect.Interfaces)
	assert.Equal(t, "lo", cfg.Redirect.Loopback)
	assert.Equal(t, 80, cfg.Redirect.HTTPPort)
	assert.Equal(t, 8080, cfg.Redirect.TargetPort)

	assert.Equal(t, "prusalink-manager", cfg.Manager.Executable)
	assert.Equal(t, "prusalink-boot", cfg.Manager.BootHook)
	assert.Equal(t, "/run/prusalink/manager.pid", cfg.Manager.PIDFile)
	assert.Equal(t, "/run/prusalink", cfg.Manager.RunDirectory)

	assert.Equal(t, 1000, cfg.User.UID)
	assert.Empty(t, cfg.User.Username)
}

// TestRedirectRules_OrderAndValues verifies the rule expansion: one
// PREROUTING rule per ingress interface in configuration order, then the
// loopback OUTPUT rule, all with the configured ports.
func TestRedirectRules_OrderAndValues(t *testing.T) {
	cfg := Default()
	rules := cfg.RedirectRules()
	require.Len(t, rules, 3)

	assert.Equal(t, model.RedirectRule{Chain: "PREROUTING", Interface: "wlan0", DestPort: 80, ToPort: 8080}, rules[0])
	assert.Equal(t, model.RedirectRule{Chain: "PREROUTING", Interface: "eth0", DestPort: 80, ToPort: 8080}, rules[1])
	assert.Equal(t, model.RedirectRule{Chain: "OUTPUT", Interface: "lo", DestPort: 80, ToPort: 8080}, rules[2])
}

// TestLoad_MissingFileUsesDefaults verifies that an absent config file is
// not an error: the boot must proceed on a stock installation where /etc
// was never customized.
func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

// TestParse_JSONCCommentsTolerated verifies that comments and trailing
// commas — common in hand-edited files — parse cleanly.
func TestParse_JSONCCommentsTolerated(t *testing.T) {
	data := []byte(`{
		// serial line for the MK3S
		"serial": {
			"device": "/dev/ttyUSB0",
			"baud": 57600, // slower UART
		},
		/* only ethernet on this host */
		"redirect": {
			"interfaces": ["eth0"],
		},
	}`)

	cfg, err := Parse(data, "boot.json")
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Device)
	assert.Equal(t, 57600, cfg.Serial.Baud)
	assert.Equal(t, []string{"eth0"}, cfg.Redirect.Interfaces)

	// Unset fields still receive defaults.
	assert.Equal(t, "Starting PrusaLink", cfg.Serial.Message)
	assert.Equal(t, 80, cfg.Redirect.HTTPPort)
	assert.Equal(t, 8080, cfg.Redirect.TargetPort)
}

// TestParse_UsernameOverridesUID verifies that an explicit username
// suppresses the default uid so the resolver prefers the name.
func TestParse_UsernameOverridesUID(t *testing.T) {
	cfg, err := Parse([]byte(`{"user": {"username": "maker"}}`), "boot.json")
	require.NoError(t, err)

	assert.Equal(t, "maker", cfg.User.Username)
	assert.Equal(t, 0, cfg.User.UID, "explicit username must not pull in the default uid")
}

// TestParse_InvalidValuesRejected verifies that explicit out-of-range
// values fail validation with a config-error exit code rather than being
// silently replaced with defaults.
func TestParse_InvalidValuesRejected(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"bad target port", `{"redirect": {"targetPort": 99999}}`},
		{"negative baud", `{"serial": {"baud": -1}}`},
		{"unsupported baud", `{"serial": {"baud": 115201}}`},
		{"negative stop timeout", `{"manager": {"stopTimeoutSeconds": -5}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data), "boot.json")
			require.Error(t, err)

			var cliErr *model.CLIError
			require.True(t, errors.As(err, &cliErr))
			assert.Equal(t, model.ExitConfigError, cliErr.Code)
		})
	}
}

// TestParse_UnsupportedBaudIsConfigError verifies that a baud rate
// outside the termios table is caught at load time with a config-error
// exit code, not later by the first serial command.
func TestParse_UnsupportedBaudIsConfigError(t *testing.T) {
	_, err := Parse([]byte(`{"serial": {"baud": 115201}}`), "boot.json")
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitConfigError, cliErr.Code)
	assert.Contains(t, err.Error(), "unsupported baud rate 115201")
}

// TestParse_MalformedJSONRejected verifies that unparseable content is a
// config error — silently booting with defaults would mask a typo in a
// hand-edited file.
func TestParse_MalformedJSONRejected(t *testing.T) {
	_, err := Parse([]byte(`{"serial": `), "boot.json")
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitConfigError, cliErr.Code)
}

// TestLoad_ReadsFileFromDisk verifies the full read-parse-default path
// against a real file.
func TestLoad_ReadsFileFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"redirect": {"targetPort": 9090}}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Redirect.TargetPort)
	assert.Equal(t, 80, cfg.Redirect.HTTPPort)
}
