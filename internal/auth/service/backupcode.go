package service

import (
	"fmt"
	"strings"

	"github.com/relooptech/reloop/pkg/cryptox"
)

const (
	backupCodeCount = 10
	backupCodeChars = 8

	// No 0/O, 1/I or similar lookalikes; these codes get read off paper.
	backupCodeCharset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

// GenerateBackupCodes returns a fresh set of plaintext recovery codes
// formatted XXXX-XXXX for one-time display. Plaintext is never stored;
// callers persist HashBackupCode of each.
func GenerateBackupCodes() ([]string, error) {
	codes := make([]string, 0, backupCodeCount)
	seen := make(map[string]struct{}, backupCodeCount)

	for len(codes) < backupCodeCount {
		raw, err := cryptox.RandomFromCharset(backupCodeCharset, backupCodeChars)
		if err != nil {
			return nil, fmt.Errorf("failed to generate backup code: %w", err)
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		codes = append(codes, raw[:4]+"-"+raw[4:])
	}
	return codes, nil
}

// HashBackupCode returns the storage digest of a backup code. Input is
// normalized first (uppercase, separators stripped) so "abcd-efgh" and
// "ABCDEFGH" hash identically.
func HashBackupCode(code string) string {
	return cryptox.FingerprintToken(normalizeBackupCode(code))
}

func normalizeBackupCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, "-", "")
	return strings.ReplaceAll(code, " ", "")
}
