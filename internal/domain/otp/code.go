package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CodeLength is the number of digits in a code
const CodeLength = 6

var codeSpace = big.NewInt(1_000_000)

// GenerateCode returns a uniformly random zero-padded 6 digit code
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

// NormalizeCode folds compatibility digits (full-width, etc.) to ASCII,
// drops everything that is not a digit and truncates to CodeLength.
func NormalizeCode(raw string) string {
	folded := norm.NFKC.String(raw)
	var b strings.Builder
	for _, r := range folded {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == CodeLength {
				break
			}
		}
	}
	return b.String()
}

// ValidateCodeFormat requires exactly CodeLength ASCII digits
func ValidateCodeFormat(code string) error {
	if len(code) != CodeLength {
		return ErrInvalidFormat
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return ErrInvalidFormat
		}
	}
	return nil
}
