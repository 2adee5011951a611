// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package secrets holds the types used to reference and carry Juju user
// secret content on the charm side.
package secrets

import (
	"net/url"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/utils/v4"
	"github.com/rs/xid"
)

const (
	// ErrSecretNotGranted describes a secret that cannot be read because
	// the unit has not been granted access to it. Juju reports a missing
	// secret the same way to ungranted readers, so the two cases are not
	// distinguished.
	ErrSecretNotGranted = errors.ConstError("secret access not granted")

	// ErrSecretMissingKey describes a secret that was resolved but does
	// not carry the required content key.
	ErrSecretMissingKey = errors.ConstError("secret missing content key")
)

// SecretScheme is the URL scheme used by secret references.
const SecretScheme = "secret"

// URI identifies a secret, optionally qualified with the UUID of the
// model it lives in.
type URI struct {
	SourceUUID string
	ID         string
}

// ParseURI parses the specified string into a URI. The scheme is
// optional, so a bare secret ID is accepted.
func ParseURI(str string) (*URI, error) {
	u, err := url.Parse(str)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if u.Scheme == "" {
		u.Scheme = SecretScheme
	} else if u.Scheme != SecretScheme {
		return nil, errors.NotValidf("secret URI scheme %q", u.Scheme)
	}
	if u.Host != "" && !utils.IsValidUUIDString(u.Host) {
		return nil, errors.NotValidf("secret URI %q", str)
	}

	idStr := strings.TrimLeft(u.Opaque, "/")
	if idStr == "" {
		idStr = strings.TrimLeft(u.Path, "/")
	}
	id, err := xid.FromString(idStr)
	if err != nil {
		return nil, errors.NotValidf("secret URI %q", str)
	}
	return &URI{
		SourceUUID: u.Host,
		ID:         id.String(),
	}, nil
}

// String prints the URI as a string.
func (u *URI) String() string {
	if u == nil {
		return ""
	}
	var fullPath []string
	if u.SourceUUID != "" {
		fullPath = append(fullPath, u.SourceUUID)
	}
	fullPath = append(fullPath, u.ID)
	urlValue := url.URL{
		Scheme: SecretScheme,
		Opaque: strings.Join(fullPath, "/"),
	}
	return urlValue.String()
}
