// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package charm

import (
	"context"
	"fmt"

	"github.com/juju/errors"

	"github.com/canonical/ubuntu-langpacks-operator/core/secrets"
	"github.com/canonical/ubuntu-langpacks-operator/core/status"
	"github.com/canonical/ubuntu-langpacks-operator/internal/langpacks"
)

// secretContentKey is the content key of the configured secret that
// holds the signing key material.
const secretContentKey = "key"

// advisoryNoSigning is shown when the unit is healthy but uploads
// cannot be signed.
const advisoryNoSigning = "Signing disabled. Set the 'gpg-secret-id' config to enable."

// install provisions the machine: build packages, the
// langpack-o-matic checkout, the unattended build command and its
// default schedule. Every step tolerates having run before.
func (c *Charm) install(ctx context.Context) error {
	st, err := c.readOrFreshState()
	if err != nil {
		return errors.Trace(err)
	}
	if st.Installed {
		logger.Infof("already provisioned, nothing to install")
		return errors.Trace(c.setStatus(status.Waiting, "waiting for configuration"))
	}
	if err := c.setStatus(status.Maintenance, "installing build packages"); err != nil {
		return errors.Trace(err)
	}
	if err := c.workload.InstallPackages(ctx); err != nil {
		return c.failHook(err, "cannot install build packages")
	}
	if err := c.setStatus(status.Maintenance, "fetching langpack-o-matic"); err != nil {
		return errors.Trace(err)
	}
	if err := c.workload.CloneCheckout(ctx); err != nil {
		return c.failHook(err, "cannot fetch langpack-o-matic")
	}
	if err := c.workload.InstallBuildCommand(c.executable); err != nil {
		return c.failHook(err, "cannot install build command")
	}
	if err := c.workload.InstallSchedule(DefaultBuildSchedule); err != nil {
		return c.failHook(err, "cannot install build schedule")
	}
	st.Installed = true
	st.Schedule = DefaultBuildSchedule
	if err := c.state.Write(st); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(c.setStatus(status.Waiting, "waiting for configuration"))
}

// start refreshes the checkout so the unit builds with current
// langpack-o-matic tooling.
func (c *Charm) start(ctx context.Context) error {
	st, err := c.readState()
	if err != nil {
		return errors.Trace(err)
	}
	if err := c.setStatus(status.Maintenance, "updating langpack-o-matic"); err != nil {
		return errors.Trace(err)
	}
	if err := c.workload.UpdateCheckout(ctx); err != nil {
		return c.failHook(err, "cannot update langpack-o-matic")
	}
	return errors.Trace(c.settleStatus(st))
}

// configChanged applies the charm configuration: the build schedule
// and the signing key. The signing secret is resolved afresh on every
// run; nothing is cached between hooks.
func (c *Charm) configChanged(ctx context.Context) error {
	st, err := c.readState()
	if err != nil {
		return errors.Trace(err)
	}
	raw, err := c.tools.ConfigSettings()
	if err != nil {
		return errors.Trace(err)
	}
	settings, err := ParseSettings(raw)
	if err != nil {
		if serr := c.setStatus(status.Blocked, "invalid configuration: "+err.Error()); serr != nil {
			return errors.Trace(serr)
		}
		return nil
	}

	if settings.BuildSchedule != st.Schedule {
		if err := c.workload.InstallSchedule(settings.BuildSchedule); err != nil {
			return c.failHook(err, "cannot install build schedule")
		}
		st.Schedule = settings.BuildSchedule
		if err := c.state.Write(st); err != nil {
			return errors.Trace(err)
		}
	}

	if settings.SecretURI == nil {
		return errors.Trace(c.setStatus(status.Active, advisoryNoSigning))
	}
	if err := c.setStatus(status.Maintenance, "installing signing key"); err != nil {
		return errors.Trace(err)
	}
	key, err := c.resolveSigningKey(settings.SecretURI)
	if err != nil {
		message, actionable := credentialProblem(err, settings.SecretURI)
		if !actionable {
			return errors.Trace(err)
		}
		if serr := c.setStatus(status.Blocked, message); serr != nil {
			return errors.Trace(serr)
		}
		return nil
	}
	fingerprint, err := c.workload.ImportSigningKey(ctx, key, st.KeyFingerprint)
	if err != nil {
		if !errors.Is(err, langpacks.ErrImportFailed) {
			return errors.Trace(err)
		}
		if serr := c.setStatus(status.Blocked, "cannot import signing key: "+err.Error()); serr != nil {
			return errors.Trace(serr)
		}
		return nil
	}
	if fingerprint != st.KeyFingerprint {
		st.KeyFingerprint = fingerprint
		if err := c.state.Write(st); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(c.setStatus(status.Active, ""))
}

// upgradeCharm re-runs provisioning with the new charm revision. It
// also adopts units installed by older revisions that kept no state.
func (c *Charm) upgradeCharm(ctx context.Context) error {
	st, err := c.readOrFreshState()
	if err != nil {
		return errors.Trace(err)
	}
	if err := c.setStatus(status.Maintenance, "upgrading"); err != nil {
		return errors.Trace(err)
	}
	if err := c.workload.InstallPackages(ctx); err != nil {
		return c.failHook(err, "cannot install build packages")
	}
	if err := c.workload.CloneCheckout(ctx); err != nil {
		return c.failHook(err, "cannot fetch langpack-o-matic")
	}
	if err := c.workload.InstallBuildCommand(c.executable); err != nil {
		return c.failHook(err, "cannot install build command")
	}
	schedule := st.Schedule
	if schedule == "" {
		schedule = DefaultBuildSchedule
	}
	if err := c.workload.InstallSchedule(schedule); err != nil {
		return c.failHook(err, "cannot install build schedule")
	}
	st.Installed = true
	st.Schedule = schedule
	if err := c.state.Write(st); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(c.settleStatus(st))
}

// stop deregisters unattended builds and removes the build command.
// The checkout and keyring are left behind; the machine is going
// away anyway.
func (c *Charm) stop(ctx context.Context) error {
	st, err := c.state.Read()
	if errors.Is(err, ErrNoStateFile) {
		return nil
	} else if err != nil {
		return errors.Trace(err)
	}
	if err := c.setStatus(status.Maintenance, "cleaning up"); err != nil {
		return errors.Trace(err)
	}
	if err := c.workload.RemoveSchedule(); err != nil {
		return errors.Trace(err)
	}
	if err := c.workload.RemoveBuildCommand(); err != nil {
		return errors.Trace(err)
	}
	st.Schedule = ""
	return errors.Trace(c.state.Write(st))
}

// resolveSigningKey fetches the key material from the configured
// secret. The plaintext lives only for the duration of the hook.
func (c *Charm) resolveSigningKey(uri *secrets.URI) ([]byte, error) {
	value, err := c.tools.GetSecret(uri)
	if err != nil {
		return nil, errors.Trace(err)
	}
	content, err := value.KeyValue(secretContentKey)
	if errors.Is(err, errors.NotFound) {
		return nil, errors.Annotatef(secrets.ErrSecretMissingKey, "secret %s", uri)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	return []byte(content), nil
}

// credentialProblem translates a signing key failure into operator
// guidance. It reports false for errors that are not the operator's
// to fix, which fail the hook instead.
func credentialProblem(err error, uri *secrets.URI) (string, bool) {
	switch {
	case errors.Is(err, secrets.ErrSecretNotGranted):
		return fmt.Sprintf("Cannot access secret %s. Grant it to the application.", uri), true
	case errors.Is(err, secrets.ErrSecretMissingKey):
		return fmt.Sprintf("Secret %s does not contain a %q value.", uri, secretContentKey), true
	}
	return "", false
}
