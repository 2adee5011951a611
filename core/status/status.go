// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package status

import (
	"time"
)

// Status represents the workload status of the unit as reported through
// status-set, or the progress of an action invocation.
type Status string

// String returns a string representation of the Status.
func (s Status) String() string {
	return string(s)
}

// StatusInfo holds a Status and associated information.
type StatusInfo struct {
	Status  Status
	Message string
	Since   *time.Time
}

const (
	// Status values the charm may set for its workload.

	// Maintenance is set when:
	// The unit is not yet providing services, but is actively doing stuff
	// in preparation for providing those services.
	// This is a "spinning" state, not an error state.
	Maintenance Status = "maintenance"

	// Waiting is set when:
	// The unit is unable to progress to an active state because of some
	// external dependency it has no control over.
	Waiting Status = "waiting"

	// Blocked is set when:
	// The unit needs manual intervention to get back to the Running state.
	Blocked Status = "blocked"

	// Active is set when:
	// The unit believes it is correctly offering all the services it has
	// been asked to offer.
	Active Status = "active"
)

const (
	// Status values describing an action invocation.

	// Pending is set when the action has been received but not yet
	// examined.
	Pending Status = "pending"

	// Running indicates that the action is currently executing.
	Running Status = "running"

	// Completed indicates that the action ran to completion as intended.
	Completed Status = "completed"

	// Failed indicates that the action did not complete successfully.
	Failed Status = "failed"

	// Aborted indicates the action was killed before it completed.
	Aborted Status = "aborted"
)

// KnownWorkloadStatus returns true if status has a known value for a
// workload.
func (s Status) KnownWorkloadStatus() bool {
	switch s {
	case Maintenance, Waiting, Blocked, Active:
		return true
	default:
		return false
	}
}

// KnownActionStatus returns true if status has a known value for an
// action.
func (s Status) KnownActionStatus() bool {
	switch s {
	case Pending, Running, Completed, Failed, Aborted:
		return true
	default:
		return false
	}
}
