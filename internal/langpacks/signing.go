// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package langpacks

import (
	"context"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/utils/v4/exec"
	"github.com/kballard/go-shellquote"
)

// osChownFile gives username ownership of path.
func osChownFile(path, username string) error {
	u, err := user.Lookup(username)
	if err != nil {
		return errors.Trace(err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return errors.Trace(err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return errors.Trace(err)
	}
	return os.Chown(path, uid, gid)
}

var chownFile = osChownFile

// EnsureKeyring creates the build user's GnuPG home with the
// permissions gpg insists on.
func (s *Service) EnsureKeyring(ctx context.Context) error {
	args := []string{"install", "-d", "-m", "0700"}
	if s.sudo {
		args = append(args, "-o", s.paths.User, "-g", s.paths.User)
	}
	args = append(args, s.paths.KeyringDir())
	if err := s.runOK(ctx, shellquote.Join(args...)); err != nil {
		return errors.Annotate(err, "creating keyring directory")
	}
	return nil
}

// ImportSigningKey installs the given key material as the build
// user's signing key and returns its fingerprint. When the key is
// already installed nothing changes; when a different key is
// installed under the previous fingerprint, that key is removed
// first, so the keyring only ever holds the configured key.
//
// Failures to stage, inspect or import the key satisfy
// ErrImportFailed unless they stem from the runner itself.
func (s *Service) ImportSigningKey(ctx context.Context, key []byte, previous string) (string, error) {
	if err := s.EnsureKeyring(ctx); err != nil {
		return "", errors.Trace(err)
	}
	staging := filepath.Join(s.paths.KeyringDir(), ".staged-signing-key.asc")
	if err := s.stageKeyFile(staging, key); err != nil {
		return "", errors.Trace(err)
	}
	defer func() {
		if err := os.Remove(staging); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Errorf("cannot remove staged key file: %v", err)
		}
	}()

	fingerprint, err := s.keyFingerprint(ctx, staging)
	if err != nil {
		return "", errors.Trace(err)
	}
	if fingerprint == previous {
		logger.Debugf("signing key %s already installed", fingerprint)
		return fingerprint, nil
	}
	if previous != "" {
		if err := s.deleteKey(ctx, previous); err != nil {
			return "", errors.Trace(err)
		}
	}
	resp, err := s.run(ctx, exec.RunParams{
		Commands: s.userCommand("gpg", "--batch", "--import", staging),
	})
	if err != nil {
		return "", errors.Trace(err)
	}
	if resp.Code != 0 {
		return "", errors.Annotatef(ErrImportFailed, "%s", exitMessage(resp))
	}
	logger.Infof("imported signing key %s", fingerprint)
	return fingerprint, nil
}

// HasSigningKey reports whether the build user's keyring holds a
// secret key.
func (s *Service) HasSigningKey(ctx context.Context) (bool, error) {
	resp, err := s.run(ctx, exec.RunParams{
		Commands: s.userCommand("gpg", "--batch", "--with-colons", "--list-secret-keys"),
	})
	if err != nil {
		return false, errors.Trace(err)
	}
	if resp.Code != 0 {
		// gpg exits non-zero when there is no keyring yet.
		return false, nil
	}
	for _, line := range strings.Split(string(resp.Stdout), "\n") {
		if strings.HasPrefix(line, "sec:") {
			return true, nil
		}
	}
	return false, nil
}

// stageKeyFile writes the key material where gpg can read it, with
// access restricted to the build user.
func (s *Service) stageKeyFile(path string, key []byte) error {
	if err := os.WriteFile(path, key, 0600); err != nil {
		return errors.Annotate(err, "staging signing key")
	}
	if !s.sudo {
		return nil
	}
	if err := chownFile(path, s.paths.User); err != nil {
		return errors.Annotate(err, "restricting staged key file")
	}
	return nil
}

// keyFingerprint reads the fingerprint of the key held in the given
// file without importing it.
func (s *Service) keyFingerprint(ctx context.Context, path string) (string, error) {
	resp, err := s.run(ctx, exec.RunParams{
		Commands: s.userCommand("gpg", "--batch", "--with-colons", "--show-keys", path),
	})
	if err != nil {
		return "", errors.Trace(err)
	}
	if resp.Code != 0 {
		return "", errors.Annotatef(ErrImportFailed, "inspecting key: %s", exitMessage(resp))
	}
	fingerprint := parseFingerprint(resp.Stdout)
	if fingerprint == "" {
		return "", errors.Annotatef(ErrImportFailed, "no usable key in secret content")
	}
	return fingerprint, nil
}

// deleteKey removes a key pair from the build user's keyring.
func (s *Service) deleteKey(ctx context.Context, fingerprint string) error {
	resp, err := s.run(ctx, exec.RunParams{
		Commands: s.userCommand("gpg", "--batch", "--yes", "--delete-secret-and-public-key", fingerprint),
	})
	if err != nil {
		return errors.Trace(err)
	}
	if resp.Code != 0 {
		return errors.Annotatef(ErrImportFailed, "removing previous key %s: %s", fingerprint, exitMessage(resp))
	}
	logger.Infof("removed previously installed signing key %s", fingerprint)
	return nil
}

// parseFingerprint extracts the first fingerprint record from
// gpg --with-colons output. The record looks like
// "fpr:::::::::ABCD...:" with the fingerprint in the tenth field.
func parseFingerprint(out []byte) string {
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "fpr:") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) > 9 && fields[9] != "" {
			return fields[9]
		}
	}
	return ""
}
