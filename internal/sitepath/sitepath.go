// Package sitepath resolves the account PrusaLink runs under and the
// per-user Python site-packages directory for that account.
//
// PrusaLink is installed with `pip install --user`, so the manager's
// interpreter needs PYTHONPATH pointed at the user's site-packages
// directory. The authoritative answer comes from the user's own
// interpreter (`python3 -m site --user-site`); when no interpreter is
// available the directory is located by globbing the conventional
// ~/.local/lib/python3.N/site-packages layout.
package sitepath

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/prusalink-community/linkboot/internal/model"
)

// Account is the resolved user PrusaLink runs under.
type Account struct {
	// Username is the login name from the passwd database.
	Username string

	// UID and GID are the numeric ids, parsed from the passwd entry.
	UID int
	GID int

	// Home is the account's home directory.
	Home string
}

// ResolveAccount looks up the target account. An explicit username wins;
// otherwise the uid is resolved through the passwd database. The stock
// image uses uid 1000, the first user created by the installer.
func ResolveAccount(username string, uid int) (*Account, error) {
	var (
		u   *user.User
		err error
	)
	if username != "" {
		u, err = user.Lookup(username)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitUserError,
				fmt.Sprintf("could not find configured user %q", username), err)
		}
	} else {
		u, err = user.LookupId(strconv.Itoa(uid))
		if err != nil {
			return nil, model.WrapCLIError(model.ExitUserError,
				fmt.Sprintf("could not resolve user for uid %d", uid), err)
		}
	}

	numericUID, err := strconv.Atoi(u.Uid)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitUserError,
			fmt.Sprintf("non-numeric uid %q for user %q", u.Uid, u.Username), err)
	}
	numericGID, err := strconv.Atoi(u.Gid)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitUserError,
			fmt.Sprintf("non-numeric gid %q for user %q", u.Gid, u.Username), err)
	}

	return &Account{
		Username: u.Username,
		UID:      numericUID,
		GID:      numericGID,
		Home:     u.HomeDir,
	}, nil
}

// UserSite returns the account's site-packages directory.
//
// The primary path asks the interpreter itself, with HOME/USER/LOGNAME
// pointed at the account so `site` computes the answer for the target
// user rather than root. If python3 is unavailable or answers nonsense,
// the conventional directory layout is searched instead.
func UserSite(ctx context.Context, acct *Account) (string, error) {
	if site, err := querySite(ctx, acct); err == nil {
		return site, nil
	} else {
		log.Debug().Err(err).Msg("python3 site query failed, falling back to directory scan")
	}

	site, err := findSiteDir(acct.Home)
	if err != nil {
		return "", model.WrapCLIError(model.ExitUserError,
			fmt.Sprintf("could not locate site-packages for user %q", acct.Username), err)
	}
	return site, nil
}

// querySite runs `python3 -m site --user-site` in the account's
// environment. The command prints the path whether or not the directory
// exists, which is fine: pip creates it on first install and the manager
// tolerates a missing PYTHONPATH entry.
func querySite(ctx context.Context, acct *Account) (string, error) {
	// #nosec G204 — fixed binary and arguments
	cmd := exec.CommandContext(ctx, "python3", "-m", "site", "--user-site")
	cmd.Env = append(os.Environ(),
		"HOME="+acct.Home,
		"USER="+acct.Username,
		"LOGNAME="+acct.Username,
	)

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("python3 -m site: %w", err)
	}

	site := strings.TrimSpace(string(out))
	if site == "" || !filepath.IsAbs(site) {
		return "", fmt.Errorf("python3 -m site returned %q", site)
	}
	return site, nil
}

// findSiteDir locates the newest python3.N site-packages directory under
// the conventional per-user layout.
func findSiteDir(home string) (string, error) {
	pattern := filepath.Join(home, ".local", "lib", "python3.*", "site-packages")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no directory matches %s", pattern)
	}

	// Prefer the highest minor version when several interpreters left
	// directories behind (e.g. after an OS upgrade).
	sort.Slice(matches, func(i, j int) bool {
		return pythonMinor(matches[i]) > pythonMinor(matches[j])
	})
	return matches[0], nil
}

// pythonMinor extracts the minor version from a path like
// ".../python3.11/site-packages". Unparseable paths sort last.
func pythonMinor(path string) int {
	dir := filepath.Base(filepath.Dir(path))
	_, minorStr, ok := strings.Cut(dir, "python3.")
	if !ok {
		return -1
	}
	minor, err := strconv.Atoi(minorStr)
	if err != nil {
		return -1
	}
	return minor
}

// ExecPrefix renders the value passed to the manager's -p flag: the
// environment assignment plus the per-user executables directory the
// manager prepends when spawning instances.
//
// The stock boot script hard-coded a username in this string; the prefix
// here is always derived from the resolved account's home directory.
func ExecPrefix(acct *Account, site string) string {
	return fmt.Sprintf("PYTHONPATH=%s %s/", site, filepath.Join(acct.Home, ".local", "bin"))
}
