// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package charm

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/errors"
	"github.com/juju/utils/v4"
)

// DefaultStatePath is where the charm records its state on a machine.
// The file holds no secret material and must stay readable by the
// build user, whose cron job consults it.
const DefaultStatePath = "/var/lib/ubuntu-langpacks/state.yaml"

// State defines the local persistent state of the charm.
type State struct {
	// Installed indicates whether provisioning has completed.
	Installed bool `yaml:"installed"`

	// KeyFingerprint is the fingerprint of the signing key held in
	// the build user's keyring, empty when no key is installed.
	KeyFingerprint string `yaml:"key-fingerprint,omitempty"`

	// Schedule is the cron expression unattended builds currently
	// run on, empty when none is registered.
	Schedule string `yaml:"schedule,omitempty"`

	// LastBuild records when the last successful build finished.
	// Recording time as int64 because the yaml encoder cannot
	// encode the time.Time struct.
	LastBuild int64 `yaml:"last-build,omitempty"`
}

// LastBuiltAt returns the time of the last successful build.
func (st State) LastBuiltAt() time.Time {
	return time.Unix(st.LastBuild, 0)
}

// validate returns an error if the state violates expectations.
func (st State) validate() (err error) {
	defer errors.DeferredAnnotatef(&err, "invalid charm state")
	if !st.Installed {
		if st.KeyFingerprint != "" {
			return fmt.Errorf("unexpected key fingerprint")
		}
		if st.Schedule != "" {
			return fmt.Errorf("unexpected schedule")
		}
		if st.LastBuild != 0 {
			return fmt.Errorf("unexpected build record")
		}
	}
	return nil
}

// StateFile holds the disk state for the charm.
type StateFile struct {
	path string
}

// NewStateFile returns a new StateFile using path.
func NewStateFile(path string) *StateFile {
	return &StateFile{path}
}

// ErrNoStateFile is returned when no state has been written yet.
const ErrNoStateFile = errors.ConstError("charm state file does not exist")

// Read reads a State from the file. If the file does not exist it
// returns ErrNoStateFile.
func (f *StateFile) Read() (*State, error) {
	var st State
	if err := utils.ReadYaml(f.path, &st); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoStateFile
		}
		return nil, errors.Annotatef(err, "cannot read charm state at %q", f.path)
	}
	if err := st.validate(); err != nil {
		return nil, errors.Annotatef(err, "cannot read charm state at %q", f.path)
	}
	return &st, nil
}

// Write stores the supplied state to the file.
func (f *StateFile) Write(st *State) error {
	if err := st.validate(); err != nil {
		panic(err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return errors.Trace(err)
	}
	return utils.WriteYaml(f.path, st)
}
