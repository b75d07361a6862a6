package schema

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Layouts used for timestamps and dates written by labbook.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04"
)

var dateTimeLayouts = []string{
	DateTimeLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	DateLayout,
}

// CheckValue validates a non-empty cell against the field kind.
// Empty values are accepted here; required-ness is checked by callers.
func CheckValue(f Field, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}

	switch f.Kind {
	case KindDate:
		if _, err := time.Parse(DateLayout, v); err != nil {
			return fmt.Errorf("%s must be a date like 2026-01-07, got %q", f.Header, v)
		}
	case KindDateTime:
		if _, ok := parseDateTime(v); !ok {
			return fmt.Errorf("%s must be a date-time like 2026-01-07 09:30, got %q", f.Header, v)
		}
	case KindDecimal:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("%s must be a number, got %q", f.Header, v)
		}
		if f.Min.Valid && d.LessThan(f.Min.Decimal) {
			return fmt.Errorf("%s must be at least %s, got %s", f.Header, f.Min.Decimal, d)
		}
		if f.Max.Valid && d.GreaterThan(f.Max.Decimal) {
			return fmt.Errorf("%s must be at most %s, got %s", f.Header, f.Max.Decimal, d)
		}
	case KindBool:
		if _, ok := ParseBool(v); !ok {
			return fmt.Errorf("%s must be yes or no, got %q", f.Header, v)
		}
	}
	return nil
}

// ParseBool accepts the yes/no spellings lab staff type into a sheet.
func ParseBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y", "true", "o":
		return true, true
	case "no", "n", "false", "x":
		return false, true
	}
	return false, false
}

// FormatBool renders a flag the way labbook writes it.
func FormatBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// FormatDecimal normalizes a decimal cell, e.g. "7.40" stays "7.40" but " 7.4 " becomes "7.4".
func FormatDecimal(v string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return "", err
	}
	return d.StringFixed(d.Exponent() * -1), nil
}

func parseDateTime(v string) (time.Time, bool) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
