// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package charm implements the hook and action handlers of the
// ubuntu-langpacks charm. The handlers talk to Juju through the hook
// tool context and drive the build machinery through the Workload
// interface, so both sides can be substituted in tests.
package charm

import (
	"context"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/utils/v4/exec"

	"github.com/canonical/ubuntu-langpacks-operator/core/status"
	"github.com/canonical/ubuntu-langpacks-operator/internal/hook"
	"github.com/canonical/ubuntu-langpacks-operator/internal/hooktool"
	"github.com/canonical/ubuntu-langpacks-operator/internal/langpacks"
)

var logger = loggo.GetLogger("langpacks.charm")

// Workload is the interface the charm drives the build machinery
// through.
type Workload interface {
	// InstallPackages installs the apt packages the builds need.
	InstallPackages(ctx context.Context) error

	// CloneCheckout fetches langpack-o-matic, refreshing an
	// existing checkout.
	CloneCheckout(ctx context.Context) error

	// UpdateCheckout pulls the latest langpack-o-matic and rebuilds
	// its helper tools.
	UpdateCheckout(ctx context.Context) error

	// InstallBuildCommand links the given executable into place as
	// the unattended build command.
	InstallBuildCommand(executable string) error

	// RemoveBuildCommand removes the unattended build command.
	RemoveBuildCommand() error

	// InstallSchedule registers unattended builds with cron.
	InstallSchedule(schedule string) error

	// RemoveSchedule deregisters unattended builds.
	RemoveSchedule() error

	// ImportSigningKey installs key material into the build user's
	// keyring, replacing the key with fingerprint previous if a
	// different one is configured now.
	ImportSigningKey(ctx context.Context, key []byte, previous string) (string, error)

	// HasSigningKey reports whether a secret key is installed.
	HasSigningKey(ctx context.Context) (bool, error)

	// Build builds language packs for a release.
	Build(ctx context.Context, release string, base bool) (*langpacks.BuildResult, error)

	// Upload signs and uploads the built packages.
	Upload(ctx context.Context) (*exec.ExecResponse, error)
}

// Config holds everything a Charm needs to handle an invocation.
type Config struct {
	// Tools gives access to the hook tools of the running hook.
	Tools hooktool.Context

	// Workload drives the build machinery on the machine.
	Workload Workload

	// StateFile persists charm state between invocations.
	StateFile *StateFile

	// Executable is the path of the charm binary, linked into place
	// as the unattended build command.
	Executable string

	// Clock timestamps build records.
	Clock clock.Clock
}

// Validate returns an error if the config is not usable.
func (c Config) Validate() error {
	if c.Tools == nil {
		return errors.NotValidf("nil Tools")
	}
	if c.Workload == nil {
		return errors.NotValidf("nil Workload")
	}
	if c.StateFile == nil {
		return errors.NotValidf("nil StateFile")
	}
	if c.Executable == "" {
		return errors.NotValidf("empty Executable")
	}
	if c.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	return nil
}

// Charm dispatches hook and action invocations to their handlers.
type Charm struct {
	tools      hooktool.Context
	workload   Workload
	state      *StateFile
	executable string
	clock      clock.Clock
}

// New returns a Charm using the supplied configuration.
func New(config Config) (*Charm, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Charm{
		tools:      config.Tools,
		workload:   config.Workload,
		state:      config.StateFile,
		executable: config.Executable,
		clock:      config.Clock,
	}, nil
}

// Run runs the handler for the given invocation. Cancelling ctx kills
// any workload command the handler has running.
func (c *Charm) Run(ctx context.Context, info hook.Info) error {
	if !info.Kind.Known() {
		// Hooks the charm has no behavior for succeed silently.
		logger.Debugf("no handler for %s", info)
		return nil
	}
	if err := info.Validate(); err != nil {
		return errors.Trace(err)
	}
	logger.Infof("running %s", info)
	switch info.Kind {
	case hook.Install:
		return c.install(ctx)
	case hook.Start:
		return c.start(ctx)
	case hook.ConfigChanged:
		return c.configChanged(ctx)
	case hook.UpgradeCharm:
		return c.upgradeCharm(ctx)
	case hook.Stop:
		return c.stop(ctx)
	}
	return c.runAction(ctx, info.ActionName)
}

// setStatus reports unit status through status-set.
func (c *Charm) setStatus(st status.Status, message string) error {
	return errors.Trace(c.tools.SetUnitStatus(status.StatusInfo{
		Status:  st,
		Message: message,
	}))
}

// failHook reports a failed provisioning step through the unit status
// and fails the hook so Juju retries it.
func (c *Charm) failHook(err error, message string) error {
	annotated := errors.Annotate(err, message)
	if serr := c.setStatus(status.Blocked, annotated.Error()); serr != nil {
		logger.Errorf("cannot set unit status: %v", serr)
	}
	return annotated
}

// readState loads persisted state, insisting the charm is provisioned.
func (c *Charm) readState() (*State, error) {
	st, err := c.state.Read()
	if errors.Is(err, ErrNoStateFile) {
		return nil, errors.New("charm is not provisioned")
	}
	return st, errors.Trace(err)
}

// readOrFreshState loads persisted state, treating a missing file as a
// fresh unit.
func (c *Charm) readOrFreshState() (*State, error) {
	st, err := c.state.Read()
	if errors.Is(err, ErrNoStateFile) {
		return &State{}, nil
	}
	return st, errors.Trace(err)
}

// settleStatus returns the unit to its idle status.
func (c *Charm) settleStatus(st *State) error {
	if st.KeyFingerprint == "" {
		return c.setStatus(status.Active, advisoryNoSigning)
	}
	return c.setStatus(status.Active, "")
}
