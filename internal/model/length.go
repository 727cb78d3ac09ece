package model

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// LbsPerKg converts kilograms to pounds.
const LbsPerKg = 2.20462

var (
	feetInchesPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)'\s*(\d+(?:\.\d+)?)?`)
	leadingNumber     = regexp.MustCompile(`^\s*[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`)
)

// ParseLength converts a plain number or a feet-inches string such as
// `30' 6"` into inches. The boolean is false when the value carries no
// usable length. A zero length is returned as (0, true); callers decide
// whether zero is acceptable.
func ParseLength(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return t, !math.IsNaN(t)
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		return ParseLengthString(t)
	case *string:
		if t == nil {
			return 0, false
		}
		return ParseLengthString(*t)
	default:
		return ParseLengthString(fmt.Sprint(t))
	}
}

// ParseLengthString parses the string forms accepted by ParseLength.
func ParseLengthString(s string) (float64, bool) {
	if strings.TrimSpace(s) == "" {
		return 0, false
	}
	if !strings.Contains(s, "'") {
		if f, ok := ParseNumber(s); ok {
			return f, true
		}
	}
	if m := feetInchesPattern.FindStringSubmatch(s); m != nil {
		feet, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			inches := 0.0
			if m[2] != "" {
				if in, err := strconv.ParseFloat(m[2], 64); err == nil {
					inches = in
				}
			}
			return feet*12 + inches, true
		}
	}
	return ParseNumber(s)
}

// ParseNumber reads the numeric prefix of s, ignoring trailing units.
func ParseNumber(s string) (float64, bool) {
	m := leadingNumber.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(m), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FormatLength renders inches as `<feet>' <inches>"`. The inches component
// is always present and rounded to the nearest whole inch.
func FormatLength(inches float64) string {
	if inches < 0 {
		return "-" + FormatLength(-inches)
	}
	feet := math.Floor(inches / 12)
	rem := math.Round(inches - feet*12)
	if rem >= 12 {
		feet++
		rem -= 12
	}
	return fmt.Sprintf("%d' %d\"", int64(feet), int64(rem))
}

// FormatWeight renders a weight in pounds with thousands separators.
// A nil weight renders as "-"; zero is a real value and renders as "0 lbs".
func FormatWeight(lbs *float64) string {
	if lbs == nil {
		return "-"
	}
	return FormatPounds(*lbs)
}

// FormatPounds renders a known weight in whole pounds.
func FormatPounds(lbs float64) string {
	negative := lbs < 0
	if negative {
		lbs = -lbs
	}
	s := groupThousands(strconv.FormatInt(int64(math.Round(lbs)), 10)) + " lbs"
	if negative {
		s = "-" + s
	}
	return s
}

// groupThousands inserts commas every three digits from the right.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// WeightOrZero dereferences a nullable weight for arithmetic.
func WeightOrZero(w *float64) float64 {
	if w == nil {
		return 0
	}
	return *w
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
