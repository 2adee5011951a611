// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package charm

import (
	"context"
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/utils/v4/exec"

	"github.com/canonical/ubuntu-langpacks-operator/core/status"
	"github.com/canonical/ubuntu-langpacks-operator/internal/langpacks"
)

// Names of the actions the charm serves.
const (
	BuildAction  = "build-langpacks"
	UploadAction = "upload-langpacks"
)

// BuildRequest holds the validated parameters of a build-langpacks
// invocation.
type BuildRequest struct {
	// Release is an active Ubuntu series name, or "devel" for the
	// current development series.
	Release string

	// Base selects a full base pack build instead of an update
	// pack.
	Base bool
}

// parseBuildRequest validates raw action parameters as returned by
// action-get. Nothing runs until the parameters are good.
func parseBuildRequest(params map[string]interface{}) (BuildRequest, error) {
	req := BuildRequest{Release: "devel"}
	if raw, ok := params["release"]; ok && raw != nil {
		value, ok := raw.(string)
		if !ok {
			return BuildRequest{}, errors.NewNotValid(nil, fmt.Sprintf("release: expected string, got %T", raw))
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return BuildRequest{}, errors.NewNotValid(nil, "empty release")
		}
		req.Release = value
	}
	if raw, ok := params["base"]; ok && raw != nil {
		value, ok := raw.(bool)
		if !ok {
			return BuildRequest{}, errors.NewNotValid(nil, fmt.Sprintf("base: expected boolean, got %T", raw))
		}
		req.Base = value
	}
	return req, nil
}

// runAction dispatches an action invocation.
func (c *Charm) runAction(ctx context.Context, name string) error {
	switch name {
	case BuildAction:
		return c.buildAction(ctx)
	case UploadAction:
		return c.uploadAction(ctx)
	}
	return errors.NotFoundf("action %q", name)
}

func (c *Charm) buildAction(ctx context.Context) error {
	st, err := c.readState()
	if err != nil {
		return errors.Trace(err)
	}
	params, err := c.tools.ActionParams()
	if err != nil {
		return errors.Trace(err)
	}
	req, err := parseBuildRequest(params)
	if err != nil {
		return errors.Trace(c.tools.SetActionFailed(err.Error()))
	}
	if err := c.setStatus(status.Maintenance, "building language packs"); err != nil {
		return errors.Trace(err)
	}
	c.logAction("Building langpacks, it may take a while")
	result, err := c.workload.Build(ctx, req.Release, req.Base)
	if err != nil {
		var output *exec.ExecResponse
		if result != nil {
			output = result.Output
		}
		return errors.Trace(c.failAction(st, output, err))
	}
	results := map[string]string{
		"release": result.Series,
		"result":  strings.TrimSpace(string(result.Output.Stdout)),
	}
	if err := c.tools.SetActionResults(results); err != nil {
		return errors.Trace(err)
	}
	st.LastBuild = c.clock.Now().Unix()
	if err := c.state.Write(st); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(c.settleStatus(st))
}

func (c *Charm) uploadAction(ctx context.Context) error {
	st, err := c.readState()
	if err != nil {
		return errors.Trace(err)
	}
	installed, err := c.workload.HasSigningKey(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	if !installed {
		return errors.Trace(c.tools.SetActionFailed(
			"no signing key installed; set the 'gpg-secret-id' config first"))
	}
	if err := c.setStatus(status.Maintenance, "uploading language packs"); err != nil {
		return errors.Trace(err)
	}
	c.logAction("Uploading langpacks, it may take a while")
	resp, err := c.workload.Upload(ctx)
	if err != nil {
		return errors.Trace(c.failAction(st, resp, err))
	}
	results := map[string]string{"result": strings.TrimSpace(string(resp.Stdout))}
	if err := c.tools.SetActionResults(results); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(c.settleStatus(st))
}

// failAction records why an action failed, attaching the workload's
// stderr as the result when there is any, and returns the unit to its
// idle status: action failures do not degrade unit health.
func (c *Charm) failAction(st *State, output *exec.ExecResponse, actionErr error) error {
	if output != nil {
		if diag := strings.TrimSpace(string(output.Stderr)); diag != "" {
			if err := c.tools.SetActionResults(map[string]string{"result": diag}); err != nil {
				logger.Errorf("cannot record action results: %v", err)
			}
		}
	}
	message := actionErr.Error()
	if errors.Is(actionErr, langpacks.ErrAborted) {
		message = "aborted"
	}
	if err := c.tools.SetActionFailed(message); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(c.settleStatus(st))
}

// logAction streams progress to the action's log.
func (c *Charm) logAction(message string) {
	if err := c.tools.LogActionMessage(message); err != nil {
		logger.Errorf("cannot stream action log: %v", err)
	}
}
