// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hook provides types that describe the hook and action
// invocations the charm knows how to handle.
package hook

import (
	"strings"

	"github.com/juju/errors"
)

// Kind enumerates the different kinds of hook invocation.
type Kind string

const (
	Install       Kind = "install"
	Start         Kind = "start"
	ConfigChanged Kind = "config-changed"
	UpgradeCharm  Kind = "upgrade-charm"
	Stop          Kind = "stop"

	// Action is the pseudo kind for an action invocation; the action
	// name rides alongside in Info.
	Action Kind = "action"
)

// Known reports whether the charm implements hooks of this kind.
// Juju delivers many more hook kinds (update-status, relation hooks,
// leader-elected); those are ignored rather than rejected.
func (k Kind) Known() bool {
	switch k {
	case Install, Start, ConfigChanged, UpgradeCharm, Stop, Action:
		return true
	}
	return false
}

// Info holds details required to execute a hook. Not all fields are
// relevant to all Kind values.
type Info struct {
	Kind Kind

	// ActionName is the name of the action being invoked. It is only
	// set when Kind is Action.
	ActionName string
}

// Validate returns an error if the info is not valid.
func (hi Info) Validate() error {
	switch hi.Kind {
	case Action:
		if hi.ActionName == "" {
			return errors.Errorf("%q hook requires an action name", hi.Kind)
		}
		return nil
	case Install, Start, ConfigChanged, UpgradeCharm, Stop:
		return nil
	}
	return errors.Errorf("unknown hook kind %q", hi.Kind)
}

// String is used for logging.
func (hi Info) String() string {
	if hi.Kind == Action {
		return "action " + hi.ActionName
	}
	return string(hi.Kind)
}

// FromEnviron derives the invocation from the hook environment set up
// by the Juju unit agent. JUJU_DISPATCH_PATH carries "hooks/<name>" or
// "actions/<name>"; older agents only set JUJU_HOOK_NAME or
// JUJU_ACTION_NAME.
func FromEnviron(getenv func(string) string) (Info, error) {
	if path := getenv("JUJU_DISPATCH_PATH"); path != "" {
		switch {
		case strings.HasPrefix(path, "actions/"):
			return Info{Kind: Action, ActionName: strings.TrimPrefix(path, "actions/")}, nil
		case strings.HasPrefix(path, "hooks/"):
			return Info{Kind: Kind(strings.TrimPrefix(path, "hooks/"))}, nil
		default:
			return Info{}, errors.NotValidf("dispatch path %q", path)
		}
	}
	if name := getenv("JUJU_ACTION_NAME"); name != "" {
		return Info{Kind: Action, ActionName: name}, nil
	}
	if name := getenv("JUJU_HOOK_NAME"); name != "" {
		return Info{Kind: Kind(name)}, nil
	}
	return Info{}, errors.NotFoundf("hook invocation in environment")
}
