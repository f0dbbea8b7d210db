package otp

import (
	"net/url"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/virex/go/internal/account"
)

// DefaultQRSize is the PNG edge length in pixels
const DefaultQRSize = 256

// ProvisioningURI returns the otpauth URI an authenticator app can import.
// Secret accounts get a URI synthesized from their name and secret.
func ProvisioningURI(acc account.Account) string {
	if acc.Credential.Kind() == account.KindKeyURI {
		return acc.KeyURI()
	}

	u := url.URL{
		Scheme: "otpauth",
		Host:   "totp",
		Path:   "/" + acc.Name,
	}
	q := url.Values{}
	q.Set("secret", account.NormalizeSecret(acc.Secret()))
	u.RawQuery = q.Encode()
	return u.String()
}

// QRText renders the provisioning URI as a QR code made of terminal block
// characters
func QRText(acc account.Account) (string, error) {
	q, err := qrcode.New(ProvisioningURI(acc), qrcode.Medium)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(false), nil
}

// QRPNG renders the provisioning URI as a PNG image
func QRPNG(acc account.Account, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	return qrcode.Encode(ProvisioningURI(acc), qrcode.Medium, size)
}
