package account

import (
	"net/url"
	"strings"
)

// Validate checks the account structurally: a non-blank name and a credential
// that looks usable. It does not try to generate a code.
func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	switch a.Credential.kind {
	case KindKeyURI:
		return ValidateKeyURI(a.Credential.value)
	default:
		return ValidateSecret(a.Credential.value)
	}
}

// NormalizeSecret uppercases a secret and drops the spaces authenticator apps
// often insert between groups
func NormalizeSecret(secret string) string {
	return strings.ToUpper(strings.Join(strings.Fields(secret), ""))
}

// ValidateSecret accepts non-empty Base32 text (A-Z, 2-7, optional "=" padding),
// ignoring case and spaces
func ValidateSecret(secret string) error {
	s := NormalizeSecret(secret)
	if s == "" {
		return ErrInvalidSecret
	}

	padded := false
	for _, r := range s {
		switch {
		case r == '=':
			padded = true
		case padded:
			// Padding only at the end
			return ErrInvalidSecret
		case r >= 'A' && r <= 'Z', r >= '2' && r <= '7':
		default:
			return ErrInvalidSecret
		}
	}
	if strings.Trim(s, "=") == "" {
		return ErrInvalidSecret
	}
	return nil
}

// ValidateKeyURI requires the otpauth:// prefix, a parseable URI and a secret parameter
func ValidateKeyURI(keyURI string) error {
	if !strings.HasPrefix(keyURI, KeyURIPrefix) {
		return ErrInvalidKeyURI
	}
	u, err := url.Parse(keyURI)
	if err != nil {
		return ErrInvalidKeyURI
	}
	if err := ValidateSecret(u.Query().Get("secret")); err != nil {
		return ErrInvalidKeyURI
	}
	return nil
}
