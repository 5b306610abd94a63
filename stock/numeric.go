/*
numeric.go - Canonical rounding and formatting of quantities

PURPOSE:
  Every quantity in the system has at most 4 fractional digits. All
  additions and subtractions go through Round4 immediately so that long
  folds over many records cannot drift.

ROUNDING:
  Round4 rounds half away from zero. Quantities are decimals, so values like
  1.00005 round the way they read; no epsilon correction is needed.

LENIENCY:
  ParseQuantity never fails. Malformed or negative cells degrade to zero so a
  single bad cell cannot abort a whole import.

SEE ALSO:
  - balance.go: Folds records with Add4/Sub4
  - stats.go: Aggregates with Add4
*/
package stock

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// QuantityPlaces is the number of fractional digits kept for every quantity.
const QuantityPlaces = 4

// Round4 rounds d to 4 decimal places, half away from zero.
func Round4(d decimal.Decimal) decimal.Decimal {
	return d.Round(QuantityPlaces)
}

// Quantity converts a float to a rounded decimal.
func Quantity(f float64) decimal.Decimal {
	return Round4(decimal.NewFromFloat(f))
}

// MustQuantity parses a decimal string, panicking on malformed input.
func MustQuantity(s string) decimal.Decimal {
	return Round4(decimal.RequireFromString(s))
}

func Add4(a, b decimal.Decimal) decimal.Decimal { return Round4(a.Add(b)) }
func Sub4(a, b decimal.Decimal) decimal.Decimal { return Round4(a.Sub(b)) }

// FormatQuantity renders a quantity with no trailing zeros: 5, 2.5, 0.1234.
func FormatQuantity(d decimal.Decimal) string {
	return Round4(d).String()
}

// ParseQuantity coerces a raw cell value to a non-negative rounded quantity.
// Anything that is not a finite non-negative number yields zero.
func ParseQuantity(v any) decimal.Decimal {
	var d decimal.Decimal
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		d = x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero
		}
		d = decimal.NewFromFloat(x)
	case float32:
		return ParseQuantity(float64(x))
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	case json.Number:
		return ParseQuantity(string(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.Zero
		}
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero
		}
		d = parsed
	default:
		return decimal.Zero
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return Round4(d)
}
