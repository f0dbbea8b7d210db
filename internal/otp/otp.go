// Package otp turns stored accounts into time-based one-time codes and QR
// payloads. Code generation itself is delegated to github.com/pquerna/otp.
package otp

import (
	"fmt"
	"strings"
	"time"

	pqotp "github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/virex/go/internal/account"
)

// DefaultPeriod is the code rotation interval for bare secrets
const DefaultPeriod = 30

// Params describes how codes are generated for one account
type Params struct {
	Secret    string
	Period    uint
	Digits    pqotp.Digits
	Algorithm pqotp.Algorithm
}

// Code is one generated code and its validity window
type Code struct {
	Value     string
	Period    uint
	Remaining time.Duration
}

// Grouped splits the code into two halves for display: "123 456"
func (c Code) Grouped() string {
	if len(c.Value) < 6 {
		return c.Value
	}
	mid := len(c.Value) / 2
	return c.Value[:mid] + " " + c.Value[mid:]
}

// Masked returns a placeholder of the same shape as Grouped
func (c Code) Masked() string {
	return strings.Map(func(r rune) rune {
		if r == ' ' {
			return r
		}
		return '•'
	}, c.Grouped())
}

// ParamsFor resolves generation parameters. Key URIs carry their own secret,
// period, digits and algorithm; bare secrets use SHA1, six digits and 30s.
func ParamsFor(acc account.Account) (Params, error) {
	if acc.Credential.Kind() != account.KindKeyURI {
		secret := account.NormalizeSecret(acc.Secret())
		if secret == "" {
			return Params{}, ErrInvalidCredential
		}
		return Params{
			Secret:    secret,
			Period:    DefaultPeriod,
			Digits:    pqotp.DigitsSix,
			Algorithm: pqotp.AlgorithmSHA1,
		}, nil
	}

	key, err := pqotp.NewKeyFromURL(acc.KeyURI())
	if err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if key.Type() != "totp" {
		return Params{}, fmt.Errorf("%w: got %q", ErrUnsupportedType, key.Type())
	}

	secret := account.NormalizeSecret(key.Secret())
	if secret == "" {
		return Params{}, fmt.Errorf("%w: key URI has no secret", ErrInvalidCredential)
	}

	period := uint(key.Period())
	if period == 0 {
		period = DefaultPeriod
	}

	return Params{
		Secret:    secret,
		Period:    period,
		Digits:    key.Digits(),
		Algorithm: key.Algorithm(),
	}, nil
}

// Generate computes the code valid at now
func Generate(acc account.Account, now time.Time) (Code, error) {
	params, err := ParamsFor(acc)
	if err != nil {
		return Code{}, err
	}
	return params.Generate(now)
}

// Generate computes the code valid at now
func (p Params) Generate(now time.Time) (Code, error) {
	value, err := totp.GenerateCodeCustom(p.Secret, now, totp.ValidateOpts{
		Period:    p.Period,
		Digits:    p.Digits,
		Algorithm: p.Algorithm,
	})
	if err != nil {
		return Code{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	return Code{
		Value:     value,
		Period:    p.Period,
		Remaining: Remaining(now, p.Period),
	}, nil
}

// Remaining returns how long the code for the current window stays valid
func Remaining(now time.Time, period uint) time.Duration {
	if period == 0 {
		period = DefaultPeriod
	}
	window := time.Duration(period) * time.Second
	elapsed := time.Duration(now.UnixNano()) % window
	return window - elapsed
}

// ValidateKeyURI checks that a key URI is usable for code generation, on top
// of the structural checks done by account.ValidateKeyURI
func ValidateKeyURI(keyURI string) error {
	if err := account.ValidateKeyURI(keyURI); err != nil {
		return err
	}
	_, err := Generate(account.NewKeyURI("probe", keyURI), time.Now())
	return err
}
