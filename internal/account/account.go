package account

import (
	"encoding/json"
	"fmt"
	"strings"
)

// KeyURIPrefix is the scheme every key URI must start with
const KeyURIPrefix = "otpauth://"

// Kind tells which representation a credential holds
type Kind int

const (
	// KindSecret is a bare Base32 shared secret
	KindSecret Kind = iota
	// KindKeyURI is a full otpauth:// provisioning URI
	KindKeyURI
)

func (k Kind) String() string {
	switch k {
	case KindSecret:
		return "secret"
	case KindKeyURI:
		return "key_uri"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Credential holds exactly one of the two supported representations.
// The zero value is not a usable credential.
type Credential struct {
	kind  Kind
	value string
}

// Kind returns the representation held
func (c Credential) Kind() Kind {
	return c.kind
}

// Value returns the raw secret or key URI
func (c Credential) Value() string {
	return c.value
}

// Account is one TOTP entry. Only the name is mutable after creation.
type Account struct {
	Name       string
	Credential Credential
}

// NewSecret builds an account from a Base32 shared secret
func NewSecret(name, secret string) Account {
	return Account{Name: name, Credential: Credential{kind: KindSecret, value: secret}}
}

// NewKeyURI builds an account from an otpauth:// URI
func NewKeyURI(name, keyURI string) Account {
	return Account{Name: name, Credential: Credential{kind: KindKeyURI, value: keyURI}}
}

// FromText classifies free text the way decoded QR payloads and CSV cells are
// read: anything starting with otpauth:// is a key URI, everything else a secret.
func FromText(name, text string) Account {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, KeyURIPrefix) {
		return NewKeyURI(name, text)
	}
	return NewSecret(name, text)
}

// Secret returns the bare secret, or "" for key URI accounts
func (a Account) Secret() string {
	if a.Credential.kind == KindSecret {
		return a.Credential.value
	}
	return ""
}

// KeyURI returns the key URI, or "" for secret accounts
func (a Account) KeyURI() string {
	if a.Credential.kind == KindKeyURI {
		return a.Credential.value
	}
	return ""
}

// Renamed returns a copy with a new name and the same credential
func (a Account) Renamed(name string) Account {
	a.Name = name
	return a
}

// String never prints the credential
func (a Account) String() string {
	return fmt.Sprintf("Account{%q, %s}", a.Name, a.Credential.kind)
}

type wireAccount struct {
	Name   string  `json:"name"`
	Secret *string `json:"secret,omitempty"`
	KeyURI *string `json:"key_uri,omitempty"`
}

// MarshalJSON writes {"name", "secret"} or {"name", "key_uri"}
func (a Account) MarshalJSON() ([]byte, error) {
	w := wireAccount{Name: a.Name}
	value := a.Credential.value
	switch a.Credential.kind {
	case KindKeyURI:
		w.KeyURI = &value
	default:
		w.Secret = &value
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads either shape. When both fields are present the key URI wins.
func (a *Account) UnmarshalJSON(data []byte) error {
	var w wireAccount
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch {
	case w.KeyURI != nil:
		*a = NewKeyURI(w.Name, *w.KeyURI)
	case w.Secret != nil:
		*a = NewSecret(w.Name, *w.Secret)
	default:
		return ErrMalformed
	}
	return nil
}
