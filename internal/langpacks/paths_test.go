// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package langpacks_test

import (
	"github.com/juju/testing"
	gc "gopkg.in/check.v1"

	"github.com/canonical/ubuntu-langpacks-operator/internal/langpacks"
)

type pathsSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&pathsSuite{})

func (s *pathsSuite) TestDefaultPaths(c *gc.C) {
	p := langpacks.DefaultPaths()
	c.Check(p.CheckoutDir(), gc.Equals, "/home/ubuntu/langpack-o-matic")
	c.Check(p.KeyringDir(), gc.Equals, "/home/ubuntu/.gnupg")
	c.Check(p.ReleaseDir("questing"), gc.Equals, "/home/ubuntu/questing")
	c.Check(p.BuildCommandPath(), gc.Equals, "/usr/local/bin/langpacks-build")
	c.Check(p.BuildLogPath(), gc.Equals, "/home/ubuntu/langpacks-build.log")
}

func (s *pathsSuite) TestTarballPath(c *gc.C) {
	p := langpacks.DefaultPaths()
	c.Check(p.TarballPath("questing", true), gc.Equals,
		"/home/ubuntu/langpack-o-matic/ubuntu-questing-translations.tar.gz")
	c.Check(p.TarballPath("questing", false), gc.Equals,
		"/home/ubuntu/langpack-o-matic/ubuntu-questing-translations-update.tar.gz")
}
