package otp

import (
	"bytes"
	"testing"
	"time"

	pqotp "github.com/pquerna/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virex/go/internal/account"
)

// RFC 6238 appendix B secret "12345678901234567890" in Base32
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestGenerateRFCVector(t *testing.T) {
	at := time.Unix(59, 0).UTC()

	testCases := []struct {
		name     string
		account  account.Account
		expected string
	}{
		{"secret", account.NewSecret("rfc", rfcSecret), "287082"},
		{"lowercase secret with spaces", account.NewSecret("rfc", "gezd gnbv gy3t qojq gezd gnbv gy3t qojq"), "287082"},
		{"key uri defaults", account.NewKeyURI("rfc", "otpauth://totp/RFC:test?secret="+rfcSecret), "287082"},
		{"key uri eight digits", account.NewKeyURI("rfc", "otpauth://totp/RFC:test?secret="+rfcSecret+"&digits=8"), "94287082"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code, err := Generate(tc.account, at)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, code.Value)
			assert.Equal(t, uint(30), code.Period)
			assert.Equal(t, time.Second, code.Remaining)
		})
	}
}

func TestParamsForKeyURI(t *testing.T) {
	acc := account.NewKeyURI("x", "otpauth://totp/Acme:bob?secret=jbswy3dpehpk3pxp&period=60&digits=8&algorithm=SHA256")

	params, err := ParamsFor(acc)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", params.Secret)
	assert.Equal(t, uint(60), params.Period)
	assert.Equal(t, pqotp.DigitsEight, params.Digits)
	assert.Equal(t, pqotp.AlgorithmSHA256, params.Algorithm)
}

func TestGenerateInvalid(t *testing.T) {
	now := time.Now()

	testCases := []struct {
		name    string
		account account.Account
		target  error
	}{
		{"empty secret", account.NewSecret("x", " "), ErrInvalidCredential},
		{"not base32", account.NewSecret("x", "not-base32!"), ErrInvalidCredential},
		{"uri without secret", account.NewKeyURI("x", "otpauth://totp/Acme:bob"), ErrInvalidCredential},
		{"hotp uri", account.NewKeyURI("x", "otpauth://hotp/Acme:bob?secret="+rfcSecret+"&counter=1"), ErrUnsupportedType},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Generate(tc.account, now)
			assert.ErrorIs(t, err, tc.target)
		})
	}
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, 30*time.Second, Remaining(time.Unix(60, 0), 30))
	assert.Equal(t, 15*time.Second, Remaining(time.Unix(75, 0), 30))
	assert.Equal(t, 500*time.Millisecond, Remaining(time.Unix(89, 500_000_000), 30))
	assert.Equal(t, 30*time.Second, Remaining(time.Unix(90, 0), 0))
}

func TestCodeFormatting(t *testing.T) {
	assert.Equal(t, "287 082", Code{Value: "287082"}.Grouped())
	assert.Equal(t, "9428 7082", Code{Value: "94287082"}.Grouped())
	assert.Equal(t, "123", Code{Value: "123"}.Grouped())
	assert.Equal(t, "••• •••", Code{Value: "287082"}.Masked())
}

func TestValidateKeyURI(t *testing.T) {
	assert.NoError(t, ValidateKeyURI("otpauth://totp/Acme:bob?secret="+rfcSecret))

	assert.ErrorIs(t, ValidateKeyURI("https://example.com"), account.ErrInvalidKeyURI)
	// Structurally fine, but three Base32 characters do not decode
	assert.ErrorIs(t, ValidateKeyURI("otpauth://totp/Acme:bob?secret=ABC"), ErrInvalidCredential)
}

func TestProvisioningURI(t *testing.T) {
	uri := "otpauth://totp/Acme:bob?secret=ABC"
	assert.Equal(t, uri, ProvisioningURI(account.NewKeyURI("Acme", uri)))

	synthesized := ProvisioningURI(account.NewSecret("My Bank", "jbsw y3dp ehpk 3pxp"))
	assert.Equal(t, "otpauth://totp/My%20Bank?secret=JBSWY3DPEHPK3PXP", synthesized)

	name, user := account.ParseLabel(synthesized)
	assert.Equal(t, "My Bank", name)
	assert.Empty(t, user)

	// The synthesized URI generates the same codes as the bare secret
	at := time.Unix(1_700_000_000, 0)
	fromSecret, err := Generate(account.NewSecret("My Bank", "JBSWY3DPEHPK3PXP"), at)
	require.NoError(t, err)
	fromURI, err := Generate(account.NewKeyURI("My Bank", synthesized), at)
	require.NoError(t, err)
	assert.Equal(t, fromSecret.Value, fromURI.Value)
}

func TestQRRendering(t *testing.T) {
	acc := account.NewSecret("GitHub", "JBSWY3DPEHPK3PXP")

	text, err := QRText(acc)
	require.NoError(t, err)
	assert.NotEmpty(t, text)
	assert.Contains(t, text, "\n")

	png, err := QRPNG(acc, 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
