// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"

	"github.com/canonical/ubuntu-langpacks-operator/internal/charm"
)

const buildUsage = "usage: langpacks-build [--release <series>] [--base]"

var statePath = charm.DefaultStatePath

// buildMain runs one language pack build outside of any hook. The cron
// job installed by the charm invokes it with no arguments, building
// update packs for the development series; the flags cover manual runs.
func buildMain(args []string) int {
	if err := loggo.ConfigureLoggers("<root>=INFO"); err != nil {
		fmt.Fprintf(os.Stderr, "cannot configure logging: %v\n", err)
	}

	f := gnuflag.NewFlagSet("langpacks-build", gnuflag.ContinueOnError)
	f.SetOutput(io.Discard)
	var release string
	var base bool
	f.StringVar(&release, "release", "devel", "Ubuntu series to build packs for")
	f.BoolVar(&base, "base", false, "build full base packs instead of updates")
	if err := f.Parse(true, args[1:]); err != nil || f.NArg() != 0 {
		fmt.Fprintln(os.Stderr, buildUsage)
		return exit_err
	}

	// Builds only make sense on a machine the charm has provisioned.
	st, err := charm.NewStateFile(statePath).Read()
	if errors.Is(err, charm.ErrNoStateFile) {
		logger.Errorf("this machine is not managed by the ubuntu-langpacks charm")
		return exit_fail
	} else if err != nil {
		logger.Errorf("%v", err)
		return exit_fail
	}
	if !st.Installed {
		logger.Errorf("the ubuntu-langpacks charm has not finished installing")
		return exit_fail
	}

	ctx, cancel := interruptContext()
	defer cancel()

	releaser, err := acquireLock(ctx.Done())
	if err != nil {
		logger.Errorf("%v", err)
		return exit_fail
	}
	defer releaser.Release()

	workload, err := newWorkload()
	if err != nil {
		logger.Errorf("%v", err)
		return exit_fail
	}

	logger.Infof("building language packs for %q", release)
	result, err := workload.Build(ctx, release, base)
	if result != nil && result.Output != nil {
		os.Stdout.Write(result.Output.Stdout)
		os.Stderr.Write(result.Output.Stderr)
	}
	if err != nil {
		logger.Errorf("build failed: %v", err)
		return exit_fail
	}
	logger.Infof("built language packs for %s", result.Series)
	return 0
}
