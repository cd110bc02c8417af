package domain

import (
	"fmt"
	"strings"
)

type SecretScheme string

const (
	SecretSchemePass SecretScheme = "pass"
	SecretSchemeFile SecretScheme = "file"
	SecretSchemeEnv  SecretScheme = "env"
)

const schemeSeparator = "://"

// SecretRef points at a secret. A bare key has no scheme and is resolved by
// whichever store receives it.
type SecretRef struct {
	Scheme SecretScheme
	Key    string
}

func ParseSecretRef(raw string) (SecretRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return SecretRef{}, fmt.Errorf("%w: empty secret reference", ErrInvalidConfig)
	}

	scheme, key, found := strings.Cut(raw, schemeSeparator)
	if !found {
		return SecretRef{Key: raw}, nil
	}

	ref := SecretRef{Scheme: SecretScheme(strings.ToLower(scheme)), Key: strings.TrimSpace(key)}
	switch ref.Scheme {
	case SecretSchemePass, SecretSchemeFile, SecretSchemeEnv:
	default:
		return SecretRef{}, fmt.Errorf("%w: unknown secret scheme %q in %q", ErrInvalidConfig, scheme, raw)
	}
	if ref.Key == "" {
		return SecretRef{}, fmt.Errorf("%w: secret reference %q has no key", ErrInvalidConfig, raw)
	}

	return ref, nil
}

func (r SecretRef) String() string {
	if r.Scheme == "" {
		return r.Key
	}
	return string(r.Scheme) + schemeSeparator + r.Key
}

func (r SecretRef) KeyFor(scheme SecretScheme) (string, error) {
	if r.Scheme != "" && r.Scheme != scheme {
		return "", fmt.Errorf("%w: %s store cannot resolve %q", ErrInvalidConfig, scheme, r)
	}
	return r.Key, nil
}
