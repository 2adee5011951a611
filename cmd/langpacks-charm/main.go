// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// The ubuntu-langpacks charm ships a single executable with two
// personalities, selected by the name it is invoked under:
//
//	langpacks-charm  serves hook and action invocations for the
//	                 Juju unit agent.
//	langpacks-build  runs an unattended update build, and is what
//	                 the charm links into the build user's crontab.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/mutex/v2"

	"github.com/canonical/ubuntu-langpacks-operator/internal/langpacks"
	"github.com/canonical/ubuntu-langpacks-operator/internal/launchpad"
)

var logger = loggo.GetLogger("langpacks.cmd")

const (
	// exit_err is the value that is returned when the user has run the
	// command in an invalid way.
	exit_err = 2
	// exit_fail is the value that is returned when the hook or build fails.
	exit_fail = 1
	// exit_panic is the value that is returned when we exit due to an
	// unhandled panic.
	exit_panic = 3
)

// lockName identifies the machine-wide lock that keeps hook and cron
// invocations from driving the workload at the same time.
const lockName = "ubuntu-langpacks-exec"

func main() {
	os.Exit(Main(os.Args))
}

// Main is not redundant with main(), because it provides an entry point
// for testing with arbitrary command line arguments.
func Main(args []string) int {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			buf = buf[:runtime.Stack(buf, false)]
			logger.Criticalf("Unhandled panic: \n%v\n%s", r, buf)
			os.Exit(exit_panic)
		}
	}()

	switch filepath.Base(args[0]) {
	case "langpacks-build":
		return buildMain(args)
	default:
		return hookMain(args)
	}
}

// interruptContext returns a context that is cancelled when the process
// receives SIGTERM or SIGINT, which is how Juju aborts a hook. The
// workload kills any running command when the context goes.
func interruptContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigs
		logger.Warningf("received %v, aborting", sig)
		cancel()
	}()
	return ctx, cancel
}

// acquireLock takes the execution lock, waiting until whoever holds it
// lets go. Closing cancel abandons the wait.
func acquireLock(cancel <-chan struct{}) (mutex.Releaser, error) {
	releaser, err := mutex.Acquire(mutex.Spec{
		Name:   lockName,
		Clock:  clock.WallClock,
		Delay:  250 * time.Millisecond,
		Cancel: cancel,
	})
	if err != nil {
		return nil, errors.Annotate(err, "acquiring execution lock")
	}
	return releaser, nil
}

// newWorkload wires up the langpack-o-matic service for this process.
// Hooks run as root and step down to the build user per command; the
// cron job already runs as the build user.
func newWorkload() (*langpacks.Service, error) {
	lp, err := launchpad.NewClient(launchpad.Config{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	service, err := langpacks.NewService(langpacks.Config{
		Runner: langpacks.NewCommandRunner(),
		Series: lp,
		Paths:  langpacks.DefaultPaths(),
		Sudo:   os.Getuid() == 0,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return service, nil
}
