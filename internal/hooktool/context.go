// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hooktool talks to the Juju unit agent from inside a hook
// invocation by exec-ing the hook tools the agent puts on PATH
// (config-get, secret-get, status-set, the action tools and juju-log).
// It is the charm-side client for the protocol those tools implement.
package hooktool

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/names/v5"

	"github.com/canonical/ubuntu-langpacks-operator/core/secrets"
	"github.com/canonical/ubuntu-langpacks-operator/core/status"
)

var logger = loggo.GetLogger("langpacks.hooktool")

// Context exposes the hook tools the charm uses. It mirrors the tool
// vocabulary rather than any richer model: one method, one tool.
type Context interface {
	// UnitName returns the name of the local unit.
	UnitName() string

	// ConfigSettings returns the current application configuration.
	ConfigSettings() (map[string]interface{}, error)

	// GetSecret returns the content of the given secret. It returns
	// secrets.ErrSecretNotGranted if the unit cannot read the secret.
	GetSecret(uri *secrets.URI) (secrets.SecretValue, error)

	// SetUnitStatus updates the workload status of the local unit.
	SetUnitStatus(info status.StatusInfo) error

	// ActionParams returns the parameters of the running action.
	ActionParams() (map[string]interface{}, error)

	// SetActionResults records results for the running action.
	SetActionResults(results map[string]string) error

	// SetActionFailed marks the running action as failed.
	SetActionFailed(message string) error

	// LogActionMessage records a progress message against the running
	// action, visible to the operator while it runs.
	LogActionMessage(message string) error
}

// osRunTool execs a hook tool, this is used as an overloading point so
// tests can observe what *would* be run without executing anything.
func osRunTool(cmd *exec.Cmd) (stdout, stderr []byte, err error) {
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

var runTool = osRunTool

// HookContext implements Context against the tools found on PATH. It
// is only usable inside a hook invocation, where JUJU_CONTEXT_ID
// identifies the server side of the conversation.
type HookContext struct {
	unitName  string
	contextID string
	charmDir  string
}

var _ Context = (*HookContext)(nil)

// NewContext builds a HookContext from the hook environment. It fails
// if the environment does not describe a hook invocation.
func NewContext() (*HookContext, error) {
	unitName, err := getenv("JUJU_UNIT_NAME")
	if err != nil {
		return nil, errors.Trace(err)
	}
	if !names.IsValidUnit(unitName) {
		return nil, errors.NotValidf("unit name %q", unitName)
	}
	contextID, err := getenv("JUJU_CONTEXT_ID")
	if err != nil {
		return nil, errors.Trace(err)
	}
	charmDir := os.Getenv("JUJU_CHARM_DIR")
	return &HookContext{
		unitName:  unitName,
		contextID: contextID,
		charmDir:  charmDir,
	}, nil
}

func getenv(name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", errors.Errorf("%s not set", name)
	}
	return value, nil
}

// UnitName is part of Context.
func (ctx *HookContext) UnitName() string {
	return ctx.unitName
}

// CharmDir returns the charm directory of the running hook, if known.
func (ctx *HookContext) CharmDir() string {
	return ctx.charmDir
}

func (ctx *HookContext) run(tool string, args ...string) ([]byte, error) {
	logger.Tracef("running %s %s", tool, strings.Join(args, " "))
	stdout, stderr, err := runTool(exec.Command(tool, args...))
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = err.Error()
		}
		return nil, errors.Annotatef(errors.New(msg), "%s", tool)
	}
	return stdout, nil
}

// ConfigSettings is part of Context.
func (ctx *HookContext) ConfigSettings() (map[string]interface{}, error) {
	out, err := ctx.run("config-get", "--format=json", "--all")
	if err != nil {
		return nil, errors.Trace(err)
	}
	var settings map[string]interface{}
	if err := json.Unmarshal(out, &settings); err != nil {
		return nil, errors.Annotate(err, "parsing config-get output")
	}
	return settings, nil
}

// GetSecret is part of Context.
func (ctx *HookContext) GetSecret(uri *secrets.URI) (secrets.SecretValue, error) {
	stdout, stderr, err := runTool(exec.Command("secret-get", uri.String(), "--format=json"))
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if strings.Contains(msg, "permission denied") || strings.Contains(msg, "not found") {
			return nil, errors.Annotatef(secrets.ErrSecretNotGranted, "%q", uri)
		}
		if msg == "" {
			msg = err.Error()
		}
		return nil, errors.Annotatef(errors.New(msg), "secret-get %q", uri)
	}
	var content map[string]string
	if err := json.Unmarshal(stdout, &content); err != nil {
		return nil, errors.Annotate(err, "parsing secret-get output")
	}
	// secret-get emits decoded values; SecretValue carries them base64
	// encoded.
	encoded := make(map[string]string, len(content))
	for k, v := range content {
		encoded[k] = base64.StdEncoding.EncodeToString([]byte(v))
	}
	return secrets.NewSecretValue(encoded), nil
}

// SetUnitStatus is part of Context.
func (ctx *HookContext) SetUnitStatus(info status.StatusInfo) error {
	if !info.Status.KnownWorkloadStatus() {
		return errors.NotValidf("workload status %q", info.Status)
	}
	args := []string{info.Status.String()}
	if info.Message != "" {
		args = append(args, info.Message)
	}
	_, err := ctx.run("status-set", args...)
	return errors.Trace(err)
}

// ActionParams is part of Context.
func (ctx *HookContext) ActionParams() (map[string]interface{}, error) {
	out, err := ctx.run("action-get", "--format=json")
	if err != nil {
		return nil, errors.Trace(err)
	}
	var params map[string]interface{}
	if err := json.Unmarshal(out, &params); err != nil {
		return nil, errors.Annotate(err, "parsing action-get output")
	}
	return params, nil
}

// SetActionResults is part of Context.
func (ctx *HookContext) SetActionResults(results map[string]string) error {
	if len(results) == 0 {
		return nil
	}
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(results))
	for _, k := range keys {
		args = append(args, k+"="+results[k])
	}
	_, err := ctx.run("action-set", args...)
	return errors.Trace(err)
}

// SetActionFailed is part of Context.
func (ctx *HookContext) SetActionFailed(message string) error {
	var args []string
	if message != "" {
		args = append(args, message)
	}
	_, err := ctx.run("action-fail", args...)
	return errors.Trace(err)
}

// LogActionMessage is part of Context.
func (ctx *HookContext) LogActionMessage(message string) error {
	_, err := ctx.run("action-log", message)
	return errors.Trace(err)
}
