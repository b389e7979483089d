// Package currency converts between reference-currency amounts and the
// settlement unit (millisatoshis). Everything here is pure and total:
// malformed input degrades to zero values, never to a panic or error.
package currency

import (
	"math"
	"strconv"
	"strings"
)

// MillisatsPerSat is the settlement milli-unit multiplier for satoshis.
const MillisatsPerSat = 1000

// Amount is a parsed wire amount. An empty Currency means the value is
// already expressed in settlement milli-units.
type Amount struct {
	Value    int64
	Currency string
}

// IsZero reports the degenerate parse result callers must reject.
func (a Amount) IsZero() bool {
	return a.Value == 0 && a.Currency == ""
}

// ParseAmount accepts the two wire shapes: "<integer>" (settlement
// milli-units) and "<integer>.<CODE>" (smallest units of CODE). Anything
// else yields the zero Amount.
func ParseAmount(raw string) Amount {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Amount{}
	}

	parts := strings.Split(raw, ".")
	value, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || value < 0 {
		return Amount{}
	}

	switch len(parts) {
	case 1:
		return Amount{Value: value}
	case 2:
		code := strings.ToUpper(parts[1])
		if !isCurrencyCode(code) {
			return Amount{}
		}
		return Amount{Value: value, Currency: code}
	default:
		return Amount{}
	}
}

// ToMillisats converts value smallest units into settlement milli-units
// using msatsPerUnit, rounding to the nearest integer.
func ToMillisats(value int64, msatsPerUnit float64) int64 {
	return int64(math.Round(float64(value) * msatsPerUnit))
}

// FromMillisats converts settlement milli-units back into smallest units,
// rounding to the nearest integer. Inverse of ToMillisats for exact
// multiples of the minimal unit.
func FromMillisats(msats int64, msatsPerUnit float64) int64 {
	if msatsPerUnit == 0 {
		return 0
	}
	return int64(math.Round(float64(msats) / msatsPerUnit))
}

// decimalsByCode lists display decimals for codes whose conventions differ
// from the two-decimal default.
var decimalsByCode = map[string]int{
	"BTC":  8,
	"SAT":  0,
	"MSAT": 0,
	"JPY":  0,
	"KRW":  0,
	"VND":  0,
	"ISK":  0,
	"BHD":  3,
	"IQD":  3,
	"JOD":  3,
	"KWD":  3,
	"OMR":  3,
	"TND":  3,
}

// Decimals returns the display decimal places for code, defaulting to 2.
func Decimals(code string) int {
	if d, ok := decimalsByCode[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return d
	}
	return 2
}

func isCurrencyCode(code string) bool {
	if len(code) < 2 || len(code) > 5 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
