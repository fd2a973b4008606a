package barcode

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
)

func TestCheckDigitKnownCodes(t *testing.T) {
	cases := []struct {
		payload string
		digit   int
	}{
		{"400638133393", 1}, // 4006381333931
		{"590123412345", 7}, // 5901234123457
		{"789100031550", 7},
		{"000000000000", 0},
		{"111111111111", 6},
	}

	for _, tc := range cases {
		got, err := CheckDigit(tc.payload)
		if err != nil {
			t.Fatalf("CheckDigit(%q): %v", tc.payload, err)
		}
		if got != tc.digit {
			t.Fatalf("CheckDigit(%q) = %d, want %d", tc.payload, got, tc.digit)
		}
	}
}

func TestCheckDigitRejectsBadInput(t *testing.T) {
	if _, err := CheckDigit("12345"); !errors.Is(err, ErrPayloadLength) {
		t.Fatalf("expected ErrPayloadLength, got %v", err)
	}
	if _, err := CheckDigit("12345678901a"); !errors.Is(err, ErrNotNumeric) {
		t.Fatalf("expected ErrNotNumeric, got %v", err)
	}
}

// Completing any 12-digit payload must always validate.
func TestCompleteValidateRoundtrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		payload := fmt.Sprintf("%012d", rng.Int63n(1_000_000_000_000))
		code, err := Complete(payload)
		if err != nil {
			t.Fatalf("Complete(%q): %v", payload, err)
		}
		if v := Validate(code); !v.Valid {
			t.Fatalf("Validate(Complete(%q)) = %+v, want valid", payload, v)
		}
	}
}

func TestValidate(t *testing.T) {
	if v := Validate("4006381333931"); !v.Valid {
		t.Fatalf("expected valid, got %+v", v)
	}

	v := Validate("4006381333932")
	if v.Valid {
		t.Fatalf("expected invalid check digit")
	}
	if v.ExpectedDigit != 1 || v.ActualDigit != 2 {
		t.Fatalf("expected digits 1/2, got %+v", v)
	}

	// Wrong length is "not EAN-13", not "invalid".
	v = Validate("12345")
	if v.Valid || v.Reason == "" {
		t.Fatalf("expected length rejection with reason, got %+v", v)
	}

	v = Validate("40063813339ab")
	if v.Valid {
		t.Fatalf("expected non-numeric rejection, got %+v", v)
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"1234567890", "001234567890"},     // 10 digits left-padded
		{"12345678901234", "123456789012"}, // 14 digits truncated to first 12
		{"400638133393", "400638133393"},
		{"4-0063.8133 3393x", "400638133393"}, // non-digits stripped first
		{"", "000000000000"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGenerateBatch(t *testing.T) {
	codes, err := GenerateBatch("LBL", 7, 3)
	if err != nil {
		t.Fatalf("GenerateBatch: %v", err)
	}
	want := []string{"LBL000007", "LBL000008", "LBL000009"}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes[%d] = %q, want %q", i, codes[i], want[i])
		}
	}

	if _, err := GenerateBatch("LBL", 0, 0); !errors.Is(err, ErrBatchSize) {
		t.Fatalf("expected ErrBatchSize, got %v", err)
	}
	if _, err := GenerateBatch("LBL", 0, 101); !errors.Is(err, ErrBatchSize) {
		t.Fatalf("expected ErrBatchSize, got %v", err)
	}
}
