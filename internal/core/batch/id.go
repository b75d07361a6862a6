// Package batch contains the pure business logic for batch identifiers.
// This is part of the Functional Core - no I/O, only pure functions.
package batch

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/example/labbook/internal/apperr"
	"github.com/example/labbook/internal/models"
)

// Infix separates the date from the daily sequence number.
const Infix = "-CM-"

// Prefix returns the identifier prefix for a calendar day, e.g. "20260107-CM-".
func Prefix(day time.Time) string {
	return day.Format("20060102") + Infix
}

// GenerateBatchID formats the identifier following currentMax on a given day.
// The format is YYYYMMDD-CM-NN where NN is zero-padded to two digits and
// may grow past two digits (…-CM-100).
func GenerateBatchID(day time.Time, currentMax int) string {
	return fmt.Sprintf("%s%02d", Prefix(day), currentMax+1)
}

// ParseSequence extracts the sequence number after the last "-" of an ID.
func ParseSequence(id string) (int, error) {
	i := strings.LastIndex(id, "-")
	if i < 0 || i == len(id)-1 {
		return 0, malformed(id)
	}
	n, err := strconv.ParseUint(id[i+1:], 10, 31)
	if err != nil {
		return 0, malformed(id)
	}
	return int(n), nil
}

// NextID computes the next batch identifier for today from the current table.
//
// Only records whose batch ID starts with today's prefix take part; the
// match is on the string prefix, not on a date range. A matching ID whose
// trailing segment is not an unsigned integer fails the whole call with
// apperr.ErrMalformedIdentifier rather than being skipped.
//
// Two sessions computing NextID from the same snapshot get the same answer;
// nothing here guards against that.
func NextID(t models.Table, today time.Time) (string, error) {
	prefix := Prefix(today)

	currentMax := 0
	for _, id := range t.BatchIDs() {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		n, err := ParseSequence(id)
		if err != nil {
			return "", err
		}
		if n > currentMax {
			currentMax = n
		}
	}

	return GenerateBatchID(today, currentMax), nil
}

// DuplicateIDs returns batch IDs that appear more than once, sorted.
func DuplicateIDs(t models.Table) []string {
	counts := make(map[string]int)
	for _, id := range t.BatchIDs() {
		counts[id]++
	}

	var dups []string
	for id, n := range counts {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	sort.Strings(dups)
	return dups
}

// MalformedIDs returns every non-empty batch ID that does not follow the
// YYYYMMDD-CM-N pattern, in storage order.
func MalformedIDs(t models.Table) []string {
	var bad []string
	for _, id := range t.BatchIDs() {
		if !WellFormed(id) {
			bad = append(bad, id)
		}
	}
	return bad
}

// WellFormed reports whether id follows the YYYYMMDD-CM-N pattern with a
// real calendar date.
func WellFormed(id string) bool {
	date, seq, ok := strings.Cut(id, Infix)
	if !ok {
		return false
	}
	if _, err := time.Parse("20060102", date); err != nil {
		return false
	}
	_, err := strconv.ParseUint(seq, 10, 31)
	return err == nil
}

func malformed(id string) error {
	return apperr.Derive(apperr.ErrMalformedIdentifier,
		fmt.Sprintf("batch ID %q has no numeric sequence after its last '-'", id))
}
