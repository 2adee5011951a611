// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package langpacks

import (
	"github.com/juju/utils/v4/exec"
)

// CommandRunner allows to run commands on the underlying system.
type CommandRunner interface {
	RunCommands(run exec.RunParams) (*exec.ExecResponse, error)
	RunCommandsWithCancel(run exec.RunParams, cancel <-chan struct{}) (*exec.ExecResponse, error)
}

// NewCommandRunner returns a CommandRunner that executes commands on
// the local machine.
func NewCommandRunner() CommandRunner {
	return defaultRunner{}
}

type defaultRunner struct{}

// RunCommands executes the Commands specified in the RunParams using
// '/bin/bash -s', passing the commands through as stdin, and collecting
// stdout and stderr. If a non-zero return code is returned, this is
// collected as the code for the response and this does not classify as
// an error.
func (defaultRunner) RunCommands(run exec.RunParams) (*exec.ExecResponse, error) {
	return exec.RunCommands(run)
}

// RunCommandsWithCancel behaves like RunCommands, except that closing
// the cancel channel kills the running command, in which case the
// error is exec.ErrCancelled.
func (defaultRunner) RunCommandsWithCancel(run exec.RunParams, cancel <-chan struct{}) (*exec.ExecResponse, error) {
	if err := run.Run(); err != nil {
		return nil, err
	}
	return run.WaitWithCancel(cancel)
}
