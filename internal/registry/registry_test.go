package registry

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virex/go/internal/account"
)

// recordingPersister remembers every list it was asked to save and can be
// told to fail
type recordingPersister struct {
	saved [][]account.Account
	fail  error
}

func (p *recordingPersister) Persist(accounts []account.Account) error {
	if p.fail != nil {
		return p.fail
	}
	p.saved = append(p.saved, accounts)
	return nil
}

func (p *recordingPersister) last() []account.Account {
	if len(p.saved) == 0 {
		return nil
	}
	return p.saved[len(p.saved)-1]
}

func newTestRegistry(accounts ...account.Account) (*Registry, *recordingPersister) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	p := &recordingPersister{}
	return New(accounts, p, logger), p
}

var (
	github = account.NewSecret("GitHub", "JBSWY3DPEHPK3PXP")
	acme   = account.NewKeyURI("Acme", "otpauth://totp/Acme:bob?secret=ABC")
	mail   = account.NewSecret("Mail", "GEZDGNBVGY3TQOJQ")
)

func TestAddPersistsInOrder(t *testing.T) {
	r, p := newTestRegistry()

	require.NoError(t, r.Add(github))
	require.NoError(t, r.Add(acme))
	// Duplicates are allowed
	require.NoError(t, r.Add(github))

	expected := []account.Account{github, acme, github}
	assert.Equal(t, expected, r.Accounts())
	assert.Equal(t, expected, p.last())
	assert.Len(t, p.saved, 3)
	assert.Equal(t, 3, r.Len())
}

func TestAddTrimsName(t *testing.T) {
	r, _ := newTestRegistry()
	require.NoError(t, r.Add(account.NewSecret("  GitHub  ", "JBSWY3DPEHPK3PXP")))

	acc, err := r.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "GitHub", acc.Name)
}

func TestAddRejectsInvalid(t *testing.T) {
	r, p := newTestRegistry(github)

	testCases := []struct {
		name    string
		account account.Account
		target  error
	}{
		{"blank name", account.NewSecret("  ", "ABC"), account.ErrEmptyName},
		{"bad secret", account.NewSecret("x", "not base32!"), account.ErrInvalidSecret},
		{"bad uri", account.NewKeyURI("x", "https://example.com"), account.ErrInvalidKeyURI},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := r.Add(tc.account)
			assert.ErrorIs(t, err, tc.target)
			assert.ErrorIs(t, err, account.ErrValidation)
		})
	}

	assert.Equal(t, []account.Account{github}, r.Accounts())
	assert.Empty(t, p.saved)
}

func TestRename(t *testing.T) {
	r, p := newTestRegistry(github, acme)

	require.NoError(t, r.Rename(1, " Acme Corp "))

	acc, err := r.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", acc.Name)
	assert.Equal(t, acme.Credential, acc.Credential)
	assert.Equal(t, "Acme Corp", p.last()[1].Name)

	assert.ErrorIs(t, r.Rename(0, "   "), account.ErrEmptyName)
	assert.ErrorIs(t, r.Rename(2, "x"), ErrIndexOutOfRange)
	assert.ErrorIs(t, r.Rename(-1, "x"), ErrIndexOutOfRange)
}

func TestDelete(t *testing.T) {
	r, p := newTestRegistry(github, acme, mail)

	require.NoError(t, r.Delete(1))
	assert.Equal(t, []account.Account{github, mail}, r.Accounts())
	assert.Equal(t, []account.Account{github, mail}, p.last())

	assert.ErrorIs(t, r.Delete(5), ErrIndexOutOfRange)
}

func TestResetAll(t *testing.T) {
	r, p := newTestRegistry(github, acme)

	require.NoError(t, r.ResetAll())
	assert.Empty(t, r.Accounts())
	assert.NotNil(t, p.last())
	assert.Empty(t, p.last())
}

func TestImportMany(t *testing.T) {
	r, p := newTestRegistry(github)

	result, err := r.ImportMany([]account.Account{
		acme,
		account.NewSecret("", "ABC"),
		github,
		account.NewKeyURI("bad", "otpauth://totp/x"),
	})
	require.NoError(t, err)

	assert.Equal(t, ImportResult{Added: 2, Skipped: 2}, result)
	assert.Equal(t, []account.Account{github, acme, github}, r.Accounts())
	assert.Len(t, p.saved, 1)
}

func TestImportManyNothingValid(t *testing.T) {
	r, p := newTestRegistry()

	result, err := r.ImportMany([]account.Account{account.NewSecret("", "")})
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Skipped: 1}, result)
	assert.Empty(t, p.saved)
}

func TestRollbackOnPersistFailure(t *testing.T) {
	boom := errors.New("disk full")

	testCases := []struct {
		name   string
		mutate func(r *Registry) error
	}{
		{"add", func(r *Registry) error { return r.Add(mail) }},
		{"rename", func(r *Registry) error { return r.Rename(0, "renamed") }},
		{"delete", func(r *Registry) error { return r.Delete(0) }},
		{"reset", func(r *Registry) error { return r.ResetAll() }},
		{"import", func(r *Registry) error {
			_, err := r.ImportMany([]account.Account{mail})
			return err
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, p := newTestRegistry(github, acme)
			p.fail = boom

			err := tc.mutate(r)
			assert.ErrorIs(t, err, boom)
			assert.Equal(t, []account.Account{github, acme}, r.Accounts())
		})
	}
}

func TestAccountsReturnsCopy(t *testing.T) {
	r, _ := newTestRegistry(github)

	accounts := r.Accounts()
	accounts[0].Name = "tampered"

	acc, err := r.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "GitHub", acc.Name)
}

func TestNewCopiesSeed(t *testing.T) {
	seed := []account.Account{github}
	r, _ := newTestRegistry(seed...)
	seed[0] = acme

	acc, err := r.Get(0)
	require.NoError(t, err)
	assert.Equal(t, github, acc)
}

func TestPersisterFunc(t *testing.T) {
	var got []account.Account
	r := New(nil, PersisterFunc(func(accounts []account.Account) error {
		got = accounts
		return nil
	}), nil)

	require.NoError(t, r.Add(github))
	assert.Equal(t, []account.Account{github}, got)
}

func TestRekeyHoldsWriteLock(t *testing.T) {
	r, p := newTestRegistry(github)

	added := make(chan error, 1)
	err := r.Rekey(func(accounts []account.Account) error {
		assert.Equal(t, []account.Account{github}, accounts)
		accounts[0].Name = "tampered"
		go func() { added <- r.Add(acme) }()
		// The add waits for the lock
		assert.Empty(t, p.saved)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, <-added)

	assert.Equal(t, []account.Account{github, acme}, r.Accounts())
	assert.Len(t, p.saved, 1)

	failure := errors.New("boom")
	assert.ErrorIs(t, r.Rekey(func([]account.Account) error { return failure }), failure)
}
