// Package barcode implements the EAN-13 check-digit algorithm plus the
// normalization and batch-generation helpers used by the catalog.
package barcode

import (
	"errors"
	"fmt"
	"strings"
)

const (
	payloadLen = 12
	codeLen    = 13

	// MaxBatchSize caps one batch-generation request.
	MaxBatchSize = 100
)

var (
	ErrNotNumeric    = errors.New("barcode: input is not numeric")
	ErrPayloadLength = errors.New("barcode: payload must be exactly 12 digits")
	ErrBatchSize     = errors.New("barcode: batch size must be between 1 and 100")
)

// CheckDigit computes the EAN-13 check digit over exactly 12 numeric
// characters: digits at even 0-based index weigh 1, odd index weigh 3;
// the digit is (10 - sum mod 10) mod 10.
func CheckDigit(digits12 string) (int, error) {
	if len(digits12) != payloadLen {
		return 0, ErrPayloadLength
	}
	sum := 0
	for i, r := range digits12 {
		if r < '0' || r > '9' {
			return 0, ErrNotNumeric
		}
		d := int(r - '0')
		if i%2 == 0 {
			sum += d
		} else {
			sum += d * 3
		}
	}
	rem := sum % 10
	if rem == 0 {
		return 0, nil
	}
	return 10 - rem, nil
}

// Normalize coerces raw input into a 12-digit payload: non-digits are
// stripped, longer inputs keep their first 12 digits, shorter inputs are
// left-padded with zeros. This is a lossy transform, not validation.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > payloadLen {
		return digits[:payloadLen]
	}
	if len(digits) < payloadLen {
		return strings.Repeat("0", payloadLen-len(digits)) + digits
	}
	return digits
}

// Complete appends the computed check digit to a 12-digit payload.
func Complete(digits12 string) (string, error) {
	digit, err := CheckDigit(digits12)
	if err != nil {
		return "", err
	}
	return digits12 + string(rune('0'+digit)), nil
}

type Validation struct {
	Valid         bool   `json:"valid"`
	ExpectedDigit int    `json:"expected_digit"`
	ActualDigit   int    `json:"actual_digit"`
	Reason        string `json:"reason,omitempty"`
}

// Validate recomputes the check digit over the first 12 characters and
// compares it to the 13th. Anything other than 13 numeric characters is
// reported as "not an EAN-13 code" rather than an invalid one.
func Validate(code string) Validation {
	if len(code) != codeLen {
		return Validation{Reason: fmt.Sprintf("expected 13 digits, got %d", len(code))}
	}
	expected, err := CheckDigit(code[:payloadLen])
	if err != nil {
		return Validation{Reason: "code is not numeric"}
	}
	last := code[codeLen-1]
	if last < '0' || last > '9' {
		return Validation{ExpectedDigit: expected, Reason: "code is not numeric"}
	}
	actual := int(last - '0')
	if actual != expected {
		return Validation{
			ExpectedDigit: expected,
			ActualDigit:   actual,
			Reason:        "check digit mismatch",
		}
	}
	return Validation{Valid: true, ExpectedDigit: expected, ActualDigit: actual}
}

// GenerateBatch produces sequential label codes of the form
// prefix + zero-padded 6-digit counter, starting at start.
func GenerateBatch(prefix string, start int, count int) ([]string, error) {
	if count < 1 || count > MaxBatchSize {
		return nil, ErrBatchSize
	}
	if start < 0 {
		start = 0
	}
	codes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		codes = append(codes, fmt.Sprintf("%s%06d", prefix, start+i))
	}
	return codes, nil
}
