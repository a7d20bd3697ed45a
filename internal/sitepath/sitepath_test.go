package sitepath

import (
	"context"
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolveAccount_ByCurrentUID verifies uid-based resolution against
// the account the test itself runs as.
func TestResolveAccount_ByCurrentUID(t *testing.T) {
	current, err := user.Current()
	require.NoError(t, err)

	acct, err := ResolveAccount("", os.Getuid())
	require.NoError(t, err)

	assert.Equal(t, current.Username, acct.Username)
	assert.Equal(t, os.Getuid(), acct.UID)
	assert.Equal(t, current.HomeDir, acct.Home)
}

// TestResolveAccount_ByUsername verifies that an explicit username takes
// precedence over the uid parameter.
func TestResolveAccount_ByUsername(t *testing.T) {
	current, err := user.Current()
	require.NoError(t, err)

	// Pass a bogus uid to prove the name wins.
	acct, err := ResolveAccount(current.Username, -42)
	require.NoError(t, err)
	assert.Equal(t, current.Username, acct.Username)
}

// TestResolveAccount_UnknownUser verifies the error for a user that does
// not exist in the passwd database.
func TestResolveAccount_UnknownUser(t *testing.T) {
	_, err := ResolveAccount("no-such-prusalink-user", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-prusalink-user")
}

// TestFindSiteDir_PicksHighestMinor verifies the fallback scan: with
// directories from several interpreter versions left behind (an OS
// upgrade), the newest one wins.
func TestFindSiteDir_PicksHighestMinor(t *testing.T) {
	home := t.TempDir()
	for _, v := range []string{"python3.9", "python3.11", "python3.10"} {
		require.NoError(t, os.MkdirAll(
			filepath.Join(home, ".local", "lib", v, "site-packages"), 0o755))
	}

	site, err := findSiteDir(home)
	require.NoError(t, err)
	assert.Equal(t,
		filepath.Join(home, ".local", "lib", "python3.11", "site-packages"), site)
}

// TestFindSiteDir_NoLayout verifies the error when the conventional
// per-user layout does not exist at all.
func TestFindSiteDir_NoLayout(t *testing.T) {
	_, err := findSiteDir(t.TempDir())
	assert.ErrorContains(t, err, "no directory matches")
}

// TestPythonMinor verifies version extraction from site-packages paths,
// including the unparseable-sorts-last convention.
func TestPythonMinor(t *testing.T) {
	assert.Equal(t, 11, pythonMinor("/home/x/.local/lib/python3.11/site-packages"))
	assert.Equal(t, 9, pythonMinor("/home/x/.local/lib/python3.9/site-packages"))
	assert.Equal(t, -1, pythonMinor("/home/x/.local/lib/pypy3/site-packages"))
	assert.Equal(t, -1, pythonMinor("/home/x/.local/lib/python3.abc/site-packages"))
}

// TestUserSite_FallbackScan verifies that UserSite lands on the scanned
// directory when the interpreter query cannot produce a usable answer
// for the account's home.
func TestUserSite_FallbackScan(t *testing.T) {
	home := t.TempDir()
	want := filepath.Join(home, ".local", "lib", "python3.11", "site-packages")
	require.NoError(t, os.MkdirAll(want, 0o755))

	acct := &Account{Username: "maker", UID: 1000, GID: 1000, Home: home}

	site, err := UserSite(context.Background(), acct)
	require.NoError(t, err)

	// With python3 present the interpreter answers for the temp home;
	// without it the scan does. Both name a path under the temp home.
	assert.True(t, filepath.IsAbs(site))
	if site != want {
		assert.Contains(t, site, home, "site must be resolved for the account's home")
	}
}

// TestExecPrefix verifies the -p flag payload: the PYTHONPATH assignment
// plus the account's ~/.local/bin executables directory with a trailing
// slash. The prefix is always derived from the resolved account, never
// from a hard-coded username.
func TestExecPrefix(t *testing.T) {
	acct := &Account{Username: "maker", Home: "/home/maker"}
	prefix := ExecPrefix(acct, "/home/maker/.local/lib/python3.11/site-packages")

	assert.Equal(t,
		"PYTHONPATH=/home/maker/.local/lib/python3.11/site-packages /home/maker/.local/bin/",
		prefix)
	assert.Contains(t, prefix, "/home/maker/.local/lib/python3.11/site-packages")
}
