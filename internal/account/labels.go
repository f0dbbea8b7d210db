package account

import (
	"net/url"
	"strings"
)

// UnknownLabel is shown when a key URI label cannot be parsed
const UnknownLabel = "Unknown"

// Labels returns the display pair (account label, user label).
//
// For key URI accounts the unescaped URI path is split on its first ":" into
// issuer and user. For secret accounts the account label is the name.
func (a Account) Labels() (string, string) {
	if a.Credential.kind != KindKeyURI {
		return a.Name, ""
	}
	return ParseLabel(a.Credential.value)
}

// ParseLabel splits the label of an otpauth URI. Any failure yields ("Unknown", "").
func ParseLabel(keyURI string) (string, string) {
	u, err := url.Parse(keyURI)
	if err != nil || u.Scheme != "otpauth" {
		return UnknownLabel, ""
	}

	// u.Path is already unescaped, so an encoded %3A separator splits too
	label := strings.TrimPrefix(u.Path, "/")
	if label == "" {
		return UnknownLabel, ""
	}

	issuer, user, _ := strings.Cut(label, ":")
	return strings.TrimSpace(issuer), strings.TrimSpace(user)
}

// Matches reports whether the search text appears, case-insensitively, in
// either display label
func (a Account) Matches(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return true
	}
	accountLabel, userLabel := a.Labels()
	return strings.Contains(strings.ToLower(accountLabel), text) ||
		strings.Contains(strings.ToLower(userLabel), text)
}
