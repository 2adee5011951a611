// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package charm

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/robfig/cron/v3"

	"github.com/canonical/ubuntu-langpacks-operator/core/secrets"
)

// Names of the charm configuration options.
const (
	// GPGSecretIDOption holds the URI of the user secret containing
	// the archive signing key.
	GPGSecretIDOption = "gpg-secret-id"

	// BuildScheduleOption holds the cron expression unattended
	// update builds run on.
	BuildScheduleOption = "build-schedule"
)

// DefaultBuildSchedule matches the crontab langpack-o-matic ships
// with: an update build every night at 02:30.
const DefaultBuildSchedule = "30 2 * * *"

// Settings holds the decoded charm configuration.
type Settings struct {
	// SecretURI identifies the user secret holding the signing key,
	// nil when signing is not configured.
	SecretURI *secrets.URI

	// BuildSchedule is the cron expression unattended update builds
	// run on.
	BuildSchedule string
}

// ParseSettings decodes and validates raw charm configuration as
// returned by config-get.
func ParseSettings(raw map[string]interface{}) (Settings, error) {
	settings := Settings{BuildSchedule: DefaultBuildSchedule}

	value, err := stringOption(raw, GPGSecretIDOption)
	if err != nil {
		return Settings{}, errors.Trace(err)
	}
	if value != "" {
		uri, err := secrets.ParseURI(value)
		if err != nil {
			return Settings{}, errors.Annotatef(err, "option %q", GPGSecretIDOption)
		}
		settings.SecretURI = uri
	}

	value, err = stringOption(raw, BuildScheduleOption)
	if err != nil {
		return Settings{}, errors.Trace(err)
	}
	if value != "" {
		settings.BuildSchedule = value
	}
	if _, err := cron.ParseStandard(settings.BuildSchedule); err != nil {
		return Settings{}, errors.NewNotValid(err, fmt.Sprintf(
			"option %q: bad schedule %q", BuildScheduleOption, settings.BuildSchedule))
	}
	return settings, nil
}

func stringOption(raw map[string]interface{}, name string) (string, error) {
	value, ok := raw[name]
	if !ok || value == nil {
		return "", nil
	}
	s, ok := value.(string)
	if !ok {
		return "", errors.NewNotValid(nil, fmt.Sprintf("option %q: expected string, got %T", name, value))
	}
	return strings.TrimSpace(s), nil
}
