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

// TestLoadRegistry_MissingFile verifies that an absent registry means a
// single-printer installation: an empty registry, not an error.
func TestLoadRegistry_MissingFile(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join(t.TempDir(), "instances.yaml"))
	require.NoError(t, err)
	assert.Empty(t, reg.Printers)
}

// TestLoadRegistry_ParsesEntries verifies YAML parsing of printer entries
// with the documented field names.
func TestLoadRegistry_ParsesEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instances.yaml")
	data := `printers:
  - name: mk3s-left
    config_path: /etc/prusalink/mk3s-left.ini
    pid_file: /run/prusalink/mk3s-left.pid
  - name: mini-right
    pid_file: /run/prusalink/mini-right.pid
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, reg.Printers, 2)

	assert.Equal(t, "mk3s-left", reg.Printers[0].Name)
	assert.Equal(t, "/etc/prusalink/mk3s-left.ini", reg.Printers[0].ConfigPath)
	assert.Equal(t, "/run/prusalink/mk3s-left.pid", reg.Printers[0].PIDFile)

	assert.Equal(t, "mini-right", reg.Printers[1].Name)
	assert.Empty(t, reg.Printers[1].ConfigPath)
}

// TestLoadRegistry_RejectsIncompleteEntries verifies that entries missing
// a name or pid_file are a config error — a nameless entry cannot be
// reported and a pid-file-less one cannot be stopped.
func TestLoadRegistry_RejectsIncompleteEntries(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"missing name", "printers:\n  - pid_file: /run/prusalink/x.pid\n"},
		{"missing pid_file", "printers:\n  - name: mk3s\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "instances.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.data), 0o644))

			_, err := LoadRegistry(path)
			require.Error(t, err)

			var cliErr *model.CLIError
			require.True(t, errors.As(err, &cliErr))
			assert.Equal(t, model.ExitConfigError, cliErr.Code)
		})
	}
}

// TestSaveRegistry_RoundTrip verifies that a saved registry loads back
// identically, preserving entry order.
func TestSaveRegistry_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instances.yaml")

	original := &Registry{Printers: []Printer{
		{Name: "mk3s-left", ConfigPath: "/etc/prusalink/left.ini", PIDFile: "/run/prusalink/left.pid"},
		{Name: "mk4-right", PIDFile: "/run/prusalink/right.pid"},
	}}
	require.NoError(t, SaveRegistry(path, original))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}
