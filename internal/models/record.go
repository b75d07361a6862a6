package models

import (
	"sort"
	"strings"
)

// TableKind names one of the logs kept by labbook.
type TableKind string

// Table kinds
const (
	TablePreparation TableKind = "prep"
	TableUsage       TableKind = "usage"
)

// TableKinds lists every table in display order.
var TableKinds = []TableKind{TablePreparation, TableUsage}

// ParseTableKind accepts the short and long spellings used on the CLI and in URLs.
func ParseTableKind(s string) (TableKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prep", "preparation", "preparations":
		return TablePreparation, true
	case "usage", "use", "uses":
		return TableUsage, true
	}
	return "", false
}

// Record is one preparation or usage event.
type Record struct {
	BatchID   string            // Empty for schemas without a batch column
	Timestamp string            // "2006-01-02 15:04"
	Material  string
	Operator  string
	Lots      map[string]string // keyed by schema field name
	Notes     string
	Attrs     map[string]string // schema-specific extras (expiry, ph, sterilized, amount)
}

// Lot returns the lot code recorded for a lot field, or "".
func (r Record) Lot(field string) string {
	if r.Lots == nil {
		return ""
	}
	return r.Lots[field]
}

// Attr returns the value of a schema-specific attribute, or "".
func (r Record) Attr(field string) string {
	if r.Attrs == nil {
		return ""
	}
	return r.Attrs[field]
}

// Table is an ordered sequence of records bound to a schema.
// Header keeps the column order observed in the store so an overwrite
// writes columns back in the same order.
type Table struct {
	Kind     TableKind
	SchemaID string
	Header   []string
	Records  []Record
}

// Len returns the number of records.
func (t Table) Len() int {
	return len(t.Records)
}

// BatchIDs returns the non-empty batch identifiers in storage order.
func (t Table) BatchIDs() []string {
	var ids []string
	for _, r := range t.Records {
		if r.BatchID != "" {
			ids = append(ids, r.BatchID)
		}
	}
	return ids
}

// NewestFirst returns a copy of the table sorted by timestamp, newest first.
// The sort is stable so records sharing a timestamp keep insertion order.
// This is a display view only; it is never written back.
func (t Table) NewestFirst() Table {
	out := t
	out.Records = make([]Record, len(t.Records))
	copy(out.Records, t.Records)
	sort.SliceStable(out.Records, func(i, j int) bool {
		return out.Records[i].Timestamp > out.Records[j].Timestamp
	})
	return out
}
