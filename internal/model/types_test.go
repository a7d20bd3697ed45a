package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestManagerState_IsValid verifies that only the three defined lifecycle
// states are accepted.
func TestManagerState_IsValid(t *testing.T) {
	assert.True(t, StateRunning.IsValid())
	assert.True(t, StateStopped.IsValid())
	assert.True(t, StateStale.IsValid())
	assert.False(t, ManagerState("paused").IsValid())
	assert.False(t, ManagerState("").IsValid())
}

// TestRedirectRule_Validate verifies field validation for NAT rules:
// chain whitelist, non-empty interface, and port ranges.
func TestRedirectRule_Validate(t *testing.T) {
	valid := RedirectRule{Chain: "PREROUTING", Interface: "wlan0", DestPort: 80, ToPort: 8080}
	require.NoError(t, valid.Validate())

	output := RedirectRule{Chain: "OUTPUT", Interface: "lo", DestPort: 80, ToPort: 8080}
	require.NoError(t, output.Validate())

	badChain := valid
	badChain.Chain = "FORWARD"
	assert.ErrorContains(t, badChain.Validate(), "invalid chain")

	noIface := valid
	noIface.Interface = ""
	assert.ErrorContains(t, noIface.Validate(), "interface")

	badPort := valid
	badPort.DestPort = 0
	assert.ErrorContains(t, badPort.Validate(), "out of range")

	badTarget := valid
	badTarget.ToPort = 70000
	assert.ErrorContains(t, badTarget.Validate(), "out of range")
}

// TestRedirectRule_String verifies the human-readable rule format used
// in CLI output and error messages.
func TestRedirectRule_String(t *testing.T) {
	rule := RedirectRule{Chain: "PREROUTING", Interface: "eth0", DestPort: 80, ToPort: 8080}
	assert.Equal(t, "PREROUTING eth0 tcp/80 → 8080", rule.String())
}

// TestSerialSettings_Validate verifies that an empty device path and a
// non-positive baud rate are rejected.
func TestSerialSettings_Validate(t *testing.T) {
	valid := SerialSettings{Device: "/dev/ttyAMA0", Baud: 115200}
	require.NoError(t, valid.Validate())

	noDevice := SerialSettings{Baud: 115200}
	assert.ErrorContains(t, noDevice.Validate(), "device path")

	noBaud := SerialSettings{Device: "/dev/ttyAMA0"}
	assert.ErrorContains(t, noBaud.Validate(), "baud rate")
}

// TestSanitizeDisplayMessage verifies that display messages are reduced
// to a single printable-ASCII line. The M117 command takes the rest of
// the line verbatim, so anything past a newline must be cut, not sent.
// Non-ASCII runes are dropped individually; the surrounding characters
// of the word survive.
func TestSanitizeDisplayMessage(t *testing.T) {
	assert.Equal(t, "Starting PrusaLink", SanitizeDisplayMessage("Starting PrusaLink"))
	assert.Equal(t, "first line", SanitizeDisplayMessage("first line\nM104 S300"))
	assert.Equal(t, "first line", SanitizeDisplayMessage("first line\r\nsecond"))
	assert.Equal(t, "tabfree", SanitizeDisplayMessage("tab\tfree"))
	assert.Equal(t, "ascii luouk only", SanitizeDisplayMessage("ascii žluťoučký only"))
	assert.Equal(t, "", SanitizeDisplayMessage("\n"))
	assert.Equal(t, "trimmed", SanitizeDisplayMessage("  trimmed  "))
}

// TestCLIError_ErrorAndUnwrap verifies message formatting with and
// without an underlying error, and that errors.As / errors.Is see
// through the wrapper.
func TestCLIError_ErrorAndUnwrap(t *testing.T) {
	plain := NewCLIError(ExitSerialError, "serial device busy")
	assert.Equal(t, "serial device busy", plain.Error())
	assert.Equal(t, ExitSerialError, plain.Code)

	underlying := errors.New("device or resource busy")
	wrapped := WrapCLIError(ExitSerialError, "serial device busy", underlying)
	assert.Equal(t, "serial device busy: device or resource busy", wrapped.Error())
	assert.True(t, errors.Is(wrapped, underlying))

	var cliErr *CLIError
	require.True(t, errors.As(error(wrapped), &cliErr))
	assert.Equal(t, ExitSerialError, cliErr.Code)
}
