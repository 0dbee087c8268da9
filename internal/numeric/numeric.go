// Package numeric converts exchange-formatted numbers into float64.
//
// The exchange sends prices and quantities as decimal strings. Parse keeps
// the permissive behavior the analyzer formulas expect (malformed text turns
// into NaN), while ParseStrict and Flex reject malformed text so it can be
// stopped at the decode boundary.
package numeric

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

// Parse reads a base-10 floating-point literal. Malformed text yields NaN.
func Parse(s string) float64 {
	f, err := ParseStrict(s)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ParseStrict reads a base-10 floating-point literal and reports malformed
// text as an error wrapping domain.ErrMalformedNumber. The whole string must
// be the literal: trailing garbage such as "12abc" is rejected rather than
// read as 12, and the Inf, NaN and hex forms strconv accepts are rejected.
func ParseStrict(s string) (float64, error) {
	t := strings.TrimSpace(s)
	if !isDecimalLiteral(t) {
		return 0, fmt.Errorf("numeric: parse %q: %w", s, domain.ErrMalformedNumber)
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, fmt.Errorf("numeric: parse %q: %w", s, domain.ErrMalformedNumber)
	}
	return f, nil
}

func isDecimalLiteral(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c == '.', c == '+', c == '-', c == 'e', c == 'E':
		default:
			return false
		}
	}
	return true
}

// ToNumber coerces a string or numeric value to float64. Strings go through
// Parse; anything else that is not a number yields NaN.
func ToNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case uint64:
		return float64(n)
	case json.Number:
		return Parse(string(n))
	case Flex:
		return float64(n)
	case string:
		return Parse(n)
	default:
		return math.NaN()
	}
}

// Format renders f in the shortest decimal form that round-trips.
func Format(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Flex is a float64 that decodes from a JSON number or a numeric string.
type Flex float64

// UnmarshalJSON accepts 1.5, "1.5" and null. An empty string decodes to 0.
func (f *Flex) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = Flex(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("numeric: decode %s: %w", data, domain.ErrMalformedNumber)
	}
	if strings.TrimSpace(s) == "" {
		*f = 0
		return nil
	}
	v, err := ParseStrict(s)
	if err != nil {
		return err
	}
	*f = Flex(v)
	return nil
}

// MarshalJSON writes the value as a JSON string, matching the exchange format.
func (f Flex) MarshalJSON() ([]byte, error) {
	return json.Marshal(Format(float64(f)))
}

// Float returns the value as float64.
func (f Flex) Float() float64 { return float64(f) }
