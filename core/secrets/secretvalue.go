// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package secrets

import (
	"encoding/base64"
	"strings"

	"github.com/juju/errors"
)

// SecretValue holds the content of a secret as resolved from Juju.
// The underlying values are kept base64 encoded until asked for.
type SecretValue interface {
	// EncodedValues returns the key values of a secret as
	// the raw base64 encoded strings.
	EncodedValues() map[string]string

	// Values returns the key values of a secret as strings.
	Values() (map[string]string, error)

	// KeyValue returns the specified secret value for the key.
	// If the key has a #base64 suffix, the returned value is base64
	// encoded.
	KeyValue(string) (string, error)

	// IsEmpty checks if the value is empty.
	IsEmpty() bool
}

type secretValue struct {
	// data holds the key values of the secret as
	// the raw base64 encoded strings.
	data map[string][]byte
}

// NewSecretValue returns a secret using the specified map of values.
// The map values are assumed to be already base64 encoded.
func NewSecretValue(data map[string]string) SecretValue {
	dataCopy := make(map[string][]byte, len(data))
	for k, v := range data {
		dataCopy[k] = append([]byte(nil), v...)
	}
	return &secretValue{data: dataCopy}
}

// EncodedValues implements SecretValue.
func (v secretValue) EncodedValues() map[string]string {
	dataCopy := make(map[string]string, len(v.data))
	for k, val := range v.data {
		dataCopy[k] = string(val)
	}
	return dataCopy
}

// Values implements SecretValue.
func (v secretValue) Values() (map[string]string, error) {
	dataCopy := v.EncodedValues()
	for k, val := range dataCopy {
		data, err := base64.StdEncoding.DecodeString(val)
		if err != nil {
			return nil, errors.Trace(err)
		}
		dataCopy[k] = string(data)
	}
	return dataCopy, nil
}

const base64Suffix = "#base64"

// KeyValue implements SecretValue.
func (v secretValue) KeyValue(key string) (string, error) {
	useBase64 := false
	if strings.HasSuffix(key, base64Suffix) {
		key = strings.TrimSuffix(key, base64Suffix)
		useBase64 = true
	}
	val, ok := v.data[key]
	if !ok {
		return "", errors.NotFoundf("secret key value for %q", key)
	}
	// The stored value is always base64 encoded.
	if useBase64 {
		return string(val), nil
	}
	result, err := base64.StdEncoding.DecodeString(string(val))
	if err != nil {
		return "", errors.Trace(err)
	}
	return string(result), nil
}

// IsEmpty implements SecretValue.
func (v secretValue) IsEmpty() bool {
	return len(v.data) == 0
}
