// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hook_test

import (
	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/canonical/ubuntu-langpacks-operator/internal/hook"
)

type InfoSuite struct{}

var _ = gc.Suite(&InfoSuite{})

func (s *InfoSuite) TestValidate(c *gc.C) {
	for i, test := range []struct {
		info hook.Info
		err  string
	}{
		{hook.Info{Kind: hook.Install}, ""},
		{hook.Info{Kind: hook.Start}, ""},
		{hook.Info{Kind: hook.ConfigChanged}, ""},
		{hook.Info{Kind: hook.UpgradeCharm}, ""},
		{hook.Info{Kind: hook.Stop}, ""},
		{hook.Info{Kind: hook.Action, ActionName: "build-langpacks"}, ""},
		{hook.Info{Kind: hook.Action}, `"action" hook requires an action name`},
		{hook.Info{Kind: hook.Kind("grow-wings")}, `unknown hook kind "grow-wings"`},
	} {
		c.Logf("test %d: %s", i, test.info)
		err := test.info.Validate()
		if test.err == "" {
			c.Check(err, jc.ErrorIsNil)
		} else {
			c.Check(err, gc.ErrorMatches, test.err)
		}
	}
}

func (s *InfoSuite) TestKnown(c *gc.C) {
	c.Check(hook.Install.Known(), jc.IsTrue)
	c.Check(hook.Action.Known(), jc.IsTrue)
	c.Check(hook.Kind("update-status").Known(), jc.IsFalse)
	c.Check(hook.Kind("db-relation-changed").Known(), jc.IsFalse)
}

type environSuite struct{}

var _ = gc.Suite(&environSuite{})

func getenvFrom(env map[string]string) func(string) string {
	return func(k string) string { return env[k] }
}

func (s *environSuite) TestFromEnviron(c *gc.C) {
	for i, test := range []struct {
		env      map[string]string
		expected hook.Info
		err      string
	}{{
		env:      map[string]string{"JUJU_DISPATCH_PATH": "hooks/install"},
		expected: hook.Info{Kind: hook.Install},
	}, {
		env:      map[string]string{"JUJU_DISPATCH_PATH": "actions/build-langpacks"},
		expected: hook.Info{Kind: hook.Action, ActionName: "build-langpacks"},
	}, {
		env: map[string]string{
			"JUJU_DISPATCH_PATH": "hooks/config-changed",
			"JUJU_HOOK_NAME":     "config-changed",
		},
		expected: hook.Info{Kind: hook.ConfigChanged},
	}, {
		env:      map[string]string{"JUJU_HOOK_NAME": "stop"},
		expected: hook.Info{Kind: hook.Stop},
	}, {
		env:      map[string]string{"JUJU_ACTION_NAME": "upload-langpacks"},
		expected: hook.Info{Kind: hook.Action, ActionName: "upload-langpacks"},
	}, {
		env:      map[string]string{"JUJU_DISPATCH_PATH": "hooks/update-status"},
		expected: hook.Info{Kind: hook.Kind("update-status")},
	}, {
		env: map[string]string{"JUJU_DISPATCH_PATH": "gibberish"},
		err: `dispatch path "gibberish" not valid`,
	}, {
		env: map[string]string{},
		err: "hook invocation in environment not found",
	}} {
		c.Logf("test %d: %v", i, test.env)
		info, err := hook.FromEnviron(getenvFrom(test.env))
		if test.err != "" {
			c.Check(err, gc.ErrorMatches, test.err)
			continue
		}
		c.Check(err, jc.ErrorIsNil)
		c.Check(info, jc.DeepEquals, test.expected)
	}
}

func (s *environSuite) TestFromEnvironErrorTypes(c *gc.C) {
	_, err := hook.FromEnviron(getenvFrom(map[string]string{"JUJU_DISPATCH_PATH": "gibberish"}))
	c.Assert(err, jc.ErrorIs, errors.NotValid)
	_, err = hook.FromEnviron(getenvFrom(nil))
	c.Assert(err, jc.ErrorIs, errors.NotFound)
}
