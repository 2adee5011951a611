// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package langpacks

import (
	"fmt"
	"path/filepath"
)

// Paths locates everything the build machinery touches on the host.
type Paths struct {
	// User is the system account that owns the checkout, the
	// keyring and the build trees.
	User string

	// Home is User's home directory.
	Home string

	// BinDir is the directory the unattended build command is
	// linked into.
	BinDir string
}

// DefaultPaths returns the paths used on a production machine.
func DefaultPaths() Paths {
	return Paths{
		User:   "ubuntu",
		Home:   "/home/ubuntu",
		BinDir: "/usr/local/bin",
	}
}

// CheckoutDir returns the location of the langpack-o-matic working
// tree.
func (p Paths) CheckoutDir() string {
	return filepath.Join(p.Home, "langpack-o-matic")
}

// KeyringDir returns the build user's GnuPG home.
func (p Paths) KeyringDir() string {
	return filepath.Join(p.Home, ".gnupg")
}

// ReleaseDir returns the build tree for the given Ubuntu series.
func (p Paths) ReleaseDir(series string) string {
	return filepath.Join(p.Home, series)
}

// TarballPath returns where the translation export downloaded for the
// given series is written.
func (p Paths) TarballPath(series string, base bool) string {
	name := fmt.Sprintf("ubuntu-%s-translations-update.tar.gz", series)
	if base {
		name = fmt.Sprintf("ubuntu-%s-translations.tar.gz", series)
	}
	return filepath.Join(p.CheckoutDir(), name)
}

// BuildCommandPath returns the location cron invokes to run an
// unattended update build.
func (p Paths) BuildCommandPath() string {
	return filepath.Join(p.BinDir, "langpacks-build")
}

// BuildLogPath returns the file unattended builds append their output
// to.
func (p Paths) BuildLogPath() string {
	return filepath.Join(p.Home, "langpacks-build.log")
}

// CrontabPath returns the rendered crontab staged for installation.
func (p Paths) CrontabPath() string {
	return filepath.Join(p.Home, ".ubuntu-langpacks.crontab")
}
