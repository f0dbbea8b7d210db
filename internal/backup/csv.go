package backup

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/virex/go/internal/account"
	"github.com/virex/go/internal/fsutil"
	"github.com/virex/go/internal/store"
)

// ExportCSV writes one (name, key URI or secret) row per account, without a header
func ExportCSV(w io.Writer, accounts []account.Account) error {
	if len(accounts) == 0 {
		return ErrNoAccounts
	}

	cw := csv.NewWriter(w)
	for _, acc := range accounts {
		if err := cw.Write([]string{acc.Name, acc.Credential.Value()}); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ImportCSV reads two-column rows. The second column is a key URI when it
// starts with otpauth:// and a secret otherwise. Rows with fewer than two
// columns, or a blank name or value, are skipped.
func ImportCSV(r io.Reader) ([]account.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	accounts := []account.Account{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if len(record) < 2 {
			continue
		}

		name := strings.TrimSpace(record[0])
		value := strings.TrimSpace(record[1])
		if name == "" || value == "" {
			continue
		}
		accounts = append(accounts, account.FromText(name, value))
	}
	return accounts, nil
}

// ExportCSVFile writes a plaintext CSV export to path
func ExportCSVFile(path string, accounts []account.Account) error {
	var buf bytes.Buffer
	if err := ExportCSV(&buf, accounts); err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, buf.Bytes(), FileMode); err != nil {
		return store.NewError("export_csv", err)
	}
	return nil
}

// ImportCSVFile reads a plaintext CSV export from path
func ImportCSVFile(path string) ([]account.Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, store.NewError("import_csv", err)
	}
	defer f.Close()
	return ImportCSV(f)
}
