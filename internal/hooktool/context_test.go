// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hooktool_test

import (
	"os/exec"

	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/canonical/ubuntu-langpacks-operator/core/secrets"
	"github.com/canonical/ubuntu-langpacks-operator/core/status"
	"github.com/canonical/ubuntu-langpacks-operator/internal/hooktool"
)

type toolResponse struct {
	stdout string
	stderr string
	err    error
}

type fakeTool struct {
	stub      *testing.Stub
	responses []toolResponse
}

func (f *fakeTool) run(cmd *exec.Cmd) ([]byte, []byte, error) {
	f.stub.AddCall("runTool", cmd.Args)
	if len(f.responses) == 0 {
		return nil, nil, nil
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return []byte(r.stdout), []byte(r.stderr), r.err
}

type ContextSuite struct {
	testing.IsolationSuite

	tool *fakeTool
	ctx  *hooktool.HookContext
}

var _ = gc.Suite(&ContextSuite{})

func (s *ContextSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.PatchEnvironment("JUJU_UNIT_NAME", "ubuntu-langpacks/0")
	s.PatchEnvironment("JUJU_CONTEXT_ID", "ubuntu-langpacks/0-install-1234")
	s.PatchEnvironment("JUJU_CHARM_DIR", "/var/lib/juju/agents/unit-ubuntu-langpacks-0/charm")

	s.tool = &fakeTool{stub: &testing.Stub{}}
	s.PatchValue(hooktool.RunTool, s.tool.run)

	ctx, err := hooktool.NewContext()
	c.Assert(err, jc.ErrorIsNil)
	s.ctx = ctx
}

func (s *ContextSuite) respond(responses ...toolResponse) {
	s.tool.responses = responses
}

func (s *ContextSuite) TestNewContext(c *gc.C) {
	c.Assert(s.ctx.UnitName(), gc.Equals, "ubuntu-langpacks/0")
	c.Assert(s.ctx.CharmDir(), gc.Equals, "/var/lib/juju/agents/unit-ubuntu-langpacks-0/charm")
}

func (s *ContextSuite) TestNewContextMissingUnit(c *gc.C) {
	s.PatchEnvironment("JUJU_UNIT_NAME", "")
	_, err := hooktool.NewContext()
	c.Assert(err, gc.ErrorMatches, "JUJU_UNIT_NAME not set")
}

func (s *ContextSuite) TestNewContextBadUnit(c *gc.C) {
	s.PatchEnvironment("JUJU_UNIT_NAME", "not a unit")
	_, err := hooktool.NewContext()
	c.Assert(err, jc.ErrorIs, errors.NotValid)
}

func (s *ContextSuite) TestNewContextMissingContextID(c *gc.C) {
	s.PatchEnvironment("JUJU_CONTEXT_ID", "")
	_, err := hooktool.NewContext()
	c.Assert(err, gc.ErrorMatches, "JUJU_CONTEXT_ID not set")
}

func (s *ContextSuite) TestConfigSettings(c *gc.C) {
	s.respond(toolResponse{stdout: `{"gpg-secret-id": "secret:9m4e2mr0ui3e8a215n4g", "build-schedule": "30 2 * * *"}`})

	settings, err := s.ctx.ConfigSettings()
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(settings, jc.DeepEquals, map[string]interface{}{
		"gpg-secret-id":  "secret:9m4e2mr0ui3e8a215n4g",
		"build-schedule": "30 2 * * *",
	})
	s.tool.stub.CheckCalls(c, []testing.StubCall{
		{FuncName: "runTool", Args: []interface{}{[]string{"config-get", "--format=json", "--all"}}},
	})
}

func (s *ContextSuite) TestConfigSettingsError(c *gc.C) {
	s.respond(toolResponse{stderr: "ERROR borken\n", err: errors.New("exit status 1")})

	_, err := s.ctx.ConfigSettings()
	c.Assert(err, gc.ErrorMatches, "config-get: ERROR borken")
}

func (s *ContextSuite) TestGetSecret(c *gc.C) {
	s.respond(toolResponse{stdout: `{"key": "some armored key material"}`})

	uri, err := secrets.ParseURI("secret:9m4e2mr0ui3e8a215n4g")
	c.Assert(err, jc.ErrorIsNil)
	value, err := s.ctx.GetSecret(uri)
	c.Assert(err, jc.ErrorIsNil)
	content, err := value.KeyValue("key")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(content, gc.Equals, "some armored key material")
	s.tool.stub.CheckCalls(c, []testing.StubCall{
		{FuncName: "runTool", Args: []interface{}{[]string{"secret-get", "secret:9m4e2mr0ui3e8a215n4g", "--format=json"}}},
	})
}

func (s *ContextSuite) TestGetSecretNotGranted(c *gc.C) {
	s.respond(toolResponse{stderr: "ERROR permission denied\n", err: errors.New("exit status 1")})

	uri, err := secrets.ParseURI("secret:9m4e2mr0ui3e8a215n4g")
	c.Assert(err, jc.ErrorIsNil)
	_, err = s.ctx.GetSecret(uri)
	c.Assert(err, jc.ErrorIs, secrets.ErrSecretNotGranted)
}

func (s *ContextSuite) TestGetSecretNotFound(c *gc.C) {
	s.respond(toolResponse{stderr: `ERROR secret "secret:9m4e2mr0ui3e8a215n4g" not found` + "\n", err: errors.New("exit status 1")})

	uri, err := secrets.ParseURI("secret:9m4e2mr0ui3e8a215n4g")
	c.Assert(err, jc.ErrorIsNil)
	_, err = s.ctx.GetSecret(uri)
	c.Assert(err, jc.ErrorIs, secrets.ErrSecretNotGranted)
}

func (s *ContextSuite) TestSetUnitStatus(c *gc.C) {
	err := s.ctx.SetUnitStatus(status.StatusInfo{
		Status:  status.Blocked,
		Message: "Failed to install packages. Check `juju debug-log` for details.",
	})
	c.Assert(err, jc.ErrorIsNil)
	s.tool.stub.CheckCalls(c, []testing.StubCall{
		{FuncName: "runTool", Args: []interface{}{[]string{
			"status-set", "blocked", "Failed to install packages. Check `juju debug-log` for details.",
		}}},
	})
}

func (s *ContextSuite) TestSetUnitStatusNoMessage(c *gc.C) {
	err := s.ctx.SetUnitStatus(status.StatusInfo{Status: status.Active})
	c.Assert(err, jc.ErrorIsNil)
	s.tool.stub.CheckCalls(c, []testing.StubCall{
		{FuncName: "runTool", Args: []interface{}{[]string{"status-set", "active"}}},
	})
}

func (s *ContextSuite) TestSetUnitStatusRejectsUnknown(c *gc.C) {
	err := s.ctx.SetUnitStatus(status.StatusInfo{Status: status.Running})
	c.Assert(err, jc.ErrorIs, errors.NotValid)
	s.tool.stub.CheckCallNames(c)
}

func (s *ContextSuite) TestActionParams(c *gc.C) {
	s.respond(toolResponse{stdout: `{"release": "devel", "base": false}`})

	params, err := s.ctx.ActionParams()
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(params, jc.DeepEquals, map[string]interface{}{
		"release": "devel",
		"base":    false,
	})
	s.tool.stub.CheckCalls(c, []testing.StubCall{
		{FuncName: "runTool", Args: []interface{}{[]string{"action-get", "--format=json"}}},
	})
}

func (s *ContextSuite) TestSetActionResults(c *gc.C) {
	err := s.ctx.SetActionResults(map[string]string{
		"result": "OK",
		"detail": "built",
	})
	c.Assert(err, jc.ErrorIsNil)
	s.tool.stub.CheckCalls(c, []testing.StubCall{
		{FuncName: "runTool", Args: []interface{}{[]string{"action-set", "detail=built", "result=OK"}}},
	})
}

func (s *ContextSuite) TestSetActionResultsEmpty(c *gc.C) {
	err := s.ctx.SetActionResults(nil)
	c.Assert(err, jc.ErrorIsNil)
	s.tool.stub.CheckCallNames(c)
}

func (s *ContextSuite) TestSetActionFailed(c *gc.C) {
	err := s.ctx.SetActionFailed("disk full")
	c.Assert(err, jc.ErrorIsNil)
	s.tool.stub.CheckCalls(c, []testing.StubCall{
		{FuncName: "runTool", Args: []interface{}{[]string{"action-fail", "disk full"}}},
	})
}

func (s *ContextSuite) TestLogActionMessage(c *gc.C) {
	err := s.ctx.LogActionMessage("Building langpacks, it may take a while")
	c.Assert(err, jc.ErrorIsNil)
	s.tool.stub.CheckCalls(c, []testing.StubCall{
		{FuncName: "runTool", Args: []interface{}{[]string{"action-log", "Building langpacks, it may take a while"}}},
	})
}

// RealExecSuite drives the unpatched tool runner against fake
// executables to make sure stdout, stderr and exit codes all travel.
type RealExecSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&RealExecSuite{})

func (s *RealExecSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.PatchEnvironment("JUJU_UNIT_NAME", "ubuntu-langpacks/0")
	s.PatchEnvironment("JUJU_CONTEXT_ID", "ubuntu-langpacks/0-install-1234")
}

func (s *RealExecSuite) TestToolOutput(c *gc.C) {
	testing.PatchExecutable(c, s, "config-get", "#!/bin/bash --norc\necho '{\"gpg-secret-id\": \"secret:9m4e2mr0ui3e8a215n4g\"}'\n")

	ctx, err := hooktool.NewContext()
	c.Assert(err, jc.ErrorIsNil)
	settings, err := ctx.ConfigSettings()
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(settings, jc.DeepEquals, map[string]interface{}{
		"gpg-secret-id": "secret:9m4e2mr0ui3e8a215n4g",
	})
}

func (s *RealExecSuite) TestToolFailure(c *gc.C) {
	testing.PatchExecutable(c, s, "secret-get", "#!/bin/bash --norc\necho 'ERROR permission denied' >&2\nexit 1\n")

	ctx, err := hooktool.NewContext()
	c.Assert(err, jc.ErrorIsNil)
	uri, err := secrets.ParseURI("secret:9m4e2mr0ui3e8a215n4g")
	c.Assert(err, jc.ErrorIsNil)
	_, err = ctx.GetSecret(uri)
	c.Assert(err, jc.ErrorIs, secrets.ErrSecretNotGranted)
}
