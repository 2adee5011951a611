// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package langpacks

import (
	"github.com/juju/errors"
)

const (
	// ErrAborted is returned when a workload command is interrupted
	// before it completes, because the invoking hook or action was
	// asked to stop.
	ErrAborted = errors.ConstError("aborted")

	// ErrBuildFailed is returned when the langpack import tool runs
	// but exits with a non-zero code.
	ErrBuildFailed = errors.ConstError("build failed")

	// ErrUploadFailed is returned when the package upload tool runs
	// but exits with a non-zero code.
	ErrUploadFailed = errors.ConstError("upload failed")

	// ErrImportFailed is returned when a signing key cannot be
	// imported into the build user's keyring.
	ErrImportFailed = errors.ConstError("signing key import failed")
)
