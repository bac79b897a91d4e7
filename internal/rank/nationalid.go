package rank

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	dErrors "veritas/pkg/domain-errors"
)

// NormalizeNationalID strips punctuation from a national ID, keeping digits
// and the K check character, uppercased. "12.345.678-5" becomes "123456785".
func NormalizeNationalID(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'k' || r == 'K':
			b.WriteRune('K')
		}
	}
	return b.String()
}

// ValidateNationalID checks the mod-11 check digit of a national ID in any
// common format. The check digit is the last character; the body digits are
// weighted 2..7 cyclically from right to left, and the digit is
// 11 - (sum % 11), with 11 written as 0 and 10 as K.
func ValidateNationalID(raw string) error {
	id := NormalizeNationalID(raw)
	if len(id) < 2 {
		return dErrors.New(dErrors.CodeInvalidInput, "national id too short")
	}

	body, check := id[:len(id)-1], id[len(id)-1]

	sum := 0
	factor := 2
	for i := len(body) - 1; i >= 0; i-- {
		d := body[i]
		if d < '0' || d > '9' {
			return dErrors.New(dErrors.CodeInvalidInput, "national id body must be numeric")
		}
		sum += int(d-'0') * factor
		factor++
		if factor > 7 {
			factor = 2
		}
	}

	var expected byte
	switch v := 11 - (sum % 11); v {
	case 11:
		expected = '0'
	case 10:
		expected = 'K'
	default:
		expected = byte('0' + v)
	}

	if check != expected {
		return dErrors.New(dErrors.CodeInvalidInput, "national id check digit mismatch")
	}
	return nil
}

// HashNationalID returns the salted SHA-256 hex digest of a normalized
// national ID. Only this hash is ever stored; the plaintext is discarded as
// soon as the digest exists.
func HashNationalID(raw, salt string) string {
	digest := sha256.Sum256([]byte(salt + ":" + NormalizeNationalID(raw)))
	return hex.EncodeToString(digest[:])
}
