// Package amount converts between raw on-ledger token amounts and
// human-readable decimal strings.
//
// Raw amounts are integers scaled by 10^decimals. All conversions use
// arbitrary-precision arithmetic so amounts beyond the float64 safe range
// (2^53) survive a round trip unchanged.
package amount

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxDecimals is the largest decimals value accepted by the token forms.
const MaxDecimals = 9

// LamportDecimals is the scale of native SOL balances.
const LamportDecimals = 9

var (
	// ErrInvalidAmount is returned when a display string is not a
	// non-negative decimal number representable at the requested scale.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidDecimals is returned when decimals is outside 0..MaxDecimals.
	ErrInvalidDecimals = errors.New("invalid decimals")
)

// ValidateDecimals checks that d is within 0..MaxDecimals.
func ValidateDecimals(d int) error {
	if d < 0 || d > MaxDecimals {
		return fmt.Errorf("%w: %d (want 0..%d)", ErrInvalidDecimals, d, MaxDecimals)
	}
	return nil
}

// ToDisplay renders a raw amount as a decimal string with trailing
// fractional zeros removed. A nil raw amount renders as "0".
// Negative raw amounts are not produced by the ledger; they are rendered
// with a leading minus sign rather than rejected.
func ToDisplay(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	// decimal.String trims trailing zeros of the fractional part and drops
	// the separator when nothing remains.
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}

// ToDisplayUint64 is ToDisplay for amounts already held as u64.
func ToDisplayUint64(raw uint64, decimals uint8) string {
	return ToDisplay(new(big.Int).SetUint64(raw), decimals)
}

// ToRaw parses a display string into a raw amount at the given scale.
//
// Accepted syntax is digits with an optional single '.' followed by digits
// ("12", "12.5", "0.001", ".5", "7."). Signs, exponents, whitespace inside
// the number and more fractional digits than decimals are rejected with
// ErrInvalidAmount.
func ToRaw(display string, decimals uint8) (*big.Int, error) {
	if int(decimals) > MaxDecimals {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDecimals, decimals)
	}

	s := strings.TrimSpace(display)
	intPart, fracPart, err := split(s)
	if err != nil {
		return nil, err
	}
	if len(fracPart) > int(decimals) {
		return nil, fmt.Errorf("%w: %q has %d fractional digits, token allows %d",
			ErrInvalidAmount, display, len(fracPart), decimals)
	}

	if intPart == "" {
		intPart = "0"
	}
	// The appended zero keeps "7." parseable and does not change the value.
	d, err := decimal.NewFromString(intPart + "." + fracPart + "0")
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, display)
	}
	return d.Shift(int32(decimals)).BigInt(), nil
}

// split validates the digit grammar and returns the integer and fractional
// digit runs.
func split(s string) (string, string, error) {
	if s == "" {
		return "", "", fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	intPart, fracPart, hasDot := strings.Cut(s, ".")
	if hasDot && intPart == "" && fracPart == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !isDigits(intPart) || !isDigits(fracPart) {
		return "", "", fmt.Errorf("%w: %q is not a non-negative decimal number", ErrInvalidAmount, s)
	}
	return intPart, fracPart, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ToUint64 narrows a raw amount to the token program's u64 range.
func ToUint64(raw *big.Int) (uint64, error) {
	if raw == nil || raw.Sign() < 0 || !raw.IsUint64() {
		return 0, fmt.Errorf("%w: %v exceeds the u64 range", ErrInvalidAmount, raw)
	}
	return raw.Uint64(), nil
}

// ParseRaw parses a base-10 raw integer string as returned by the RPC
// (tokenAmount.amount, supply).
func ParseRaw(s string) (*big.Int, error) {
	if s == "" || !isDigits(s) {
		return nil, fmt.Errorf("%w: raw amount %q", ErrInvalidAmount, s)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: raw amount %q", ErrInvalidAmount, s)
	}
	return v, nil
}
