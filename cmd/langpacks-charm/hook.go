// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/juju/clock"
	"github.com/juju/loggo/v2"

	"github.com/canonical/ubuntu-langpacks-operator/internal/charm"
	"github.com/canonical/ubuntu-langpacks-operator/internal/hook"
	"github.com/canonical/ubuntu-langpacks-operator/internal/hooktool"
)

// hookMain serves a single hook or action invocation on behalf of the
// Juju unit agent, which sets up the environment and the hook tools
// before exec-ing us.
func hookMain(args []string) int {
	if os.Getenv("JUJU_CONTEXT_ID") != "" {
		// Forward our logging to juju-log so it lands in the model log.
		if _, err := loggo.ReplaceDefaultWriter(hooktool.NewJujuLogWriter()); err != nil {
			fmt.Fprintf(os.Stderr, "cannot set up logging: %v\n", err)
		}
	}
	if err := loggo.ConfigureLoggers("<root>=INFO"); err != nil {
		fmt.Fprintf(os.Stderr, "cannot configure logging: %v\n", err)
	}

	info, err := hook.FromEnviron(os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s must be run by the Juju unit agent: %v\n",
			filepath.Base(args[0]), err)
		return exit_err
	}
	tools, err := hooktool.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exit_err
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
	executable, err := os.Executable()
	if err != nil {
		logger.Errorf("cannot locate own executable: %v", err)
		return exit_fail
	}
	ch, err := charm.New(charm.Config{
		Tools:      tools,
		Workload:   workload,
		StateFile:  charm.NewStateFile(charm.DefaultStatePath),
		Executable: executable,
		Clock:      clock.WallClock,
	})
	if err != nil {
		logger.Errorf("%v", err)
		return exit_fail
	}

	logger.Infof("%s running %s", tools.UnitName(), info)
	if err := ch.Run(ctx, info); err != nil {
		logger.Errorf("%s failed: %v", info, err)
		return exit_fail
	}
	return 0
}
