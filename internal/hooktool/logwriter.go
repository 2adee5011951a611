// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hooktool

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"github.com/juju/loggo/v2"
)

// NewJujuLogWriter returns a loggo writer that forwards each entry to
// the juju-log hook tool, so charm logging lands in the model log and
// shows up in juju debug-log. Only usable inside a hook invocation.
func NewJujuLogWriter() loggo.Writer {
	return &jujuLogWriter{}
}

type jujuLogWriter struct{}

// Write is part of loggo.Writer.
func (w *jujuLogWriter) Write(entry loggo.Entry) {
	_, stderr, err := runTool(exec.Command(
		"juju-log",
		"--log-level", entry.Level.String(),
		fmt.Sprintf("%s: %s", entry.Module, entry.Message),
	))
	if err != nil {
		// Logging the failure would loop straight back here, so note
		// it on stderr and move on.
		fmt.Fprintf(os.Stderr, "cannot juju-log: %v (%s)\n", err, bytes.TrimSpace(stderr))
	}
}
