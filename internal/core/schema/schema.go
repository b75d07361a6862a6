// Package schema describes the versioned column layouts of the labbook
// tables and maps between typed records and untyped store rows.
// This is part of the Functional Core - no I/O, only pure functions.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/example/labbook/internal/apperr"
	"github.com/example/labbook/internal/models"
)

// Kind is the value type of a field.
type Kind string

// Field kinds
const (
	KindText     Kind = "text"
	KindDate     Kind = "date"
	KindDateTime Kind = "datetime"
	KindDecimal  Kind = "decimal"
	KindBool     Kind = "bool"
)

// Role says which Record attribute a field maps to.
type Role string

// Field roles
const (
	RoleBatchID   Role = "batch_id"
	RoleTimestamp Role = "timestamp"
	RoleMaterial  Role = "material"
	RoleOperator  Role = "operator"
	RoleLot       Role = "lot"
	RoleNotes     Role = "notes"
	RoleAttribute Role = "attribute"
)

// Field is one column definition.
type Field struct {
	Name      string   // canonical key, e.g. "batch_id", "fbs_lot"
	Header    string   // label written to the header row
	Aliases   []string // header labels accepted on load
	Kind      Kind
	Role      Role
	Required  bool
	Immutable bool // never blanked or changed once assigned

	// Decimal bounds, only meaningful for KindDecimal.
	Min, Max decimal.NullDecimal
}

// Matches reports whether a header cell names this field.
func (f Field) Matches(header string) bool {
	h := normalizeHeader(header)
	if h == normalizeHeader(f.Header) {
		return true
	}
	for _, a := range f.Aliases {
		if h == normalizeHeader(a) {
			return true
		}
	}
	return false
}

// Schema is an ordered list of fields for one table revision.
type Schema struct {
	ID     string // e.g. "prep/v2"
	Table  models.TableKind
	Fields []Field
}

// Headers returns the canonical header row.
func (s Schema) Headers() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Header
	}
	return out
}

// Field returns the field with the given canonical name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldForHeader returns the field named by a header cell.
func (s Schema) FieldForHeader(header string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Matches(header) {
			return f, true
		}
	}
	return Field{}, false
}

// HasBatchID reports whether the schema carries a batch identifier column.
func (s Schema) HasBatchID() bool {
	for _, f := range s.Fields {
		if f.Role == RoleBatchID {
			return true
		}
	}
	return false
}

// ImmutableFields returns the names of fields flagged immutable.
func (s Schema) ImmutableFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Immutable {
			out = append(out, f.Name)
		}
	}
	return out
}

// LotFields returns the lot fields in column order.
func (s Schema) LotFields() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Role == RoleLot {
			out = append(out, f)
		}
	}
	return out
}

// AttributeFields returns the schema-specific attribute fields in column order.
func (s Schema) AttributeFields() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Role == RoleAttribute {
			out = append(out, f)
		}
	}
	return out
}

var builtins = map[string]Schema{}

func register(s Schema) {
	builtins[s.ID] = s
}

// Lookup returns a built-in schema by ID.
func Lookup(id string) (Schema, error) {
	s, ok := builtins[id]
	if !ok {
		return Schema{}, apperr.Derive(apperr.ErrNotFound, fmt.Sprintf("unknown schema %q (known: %s)", id, strings.Join(IDs(), ", ")))
	}
	return s, nil
}

// IDs lists the registered schema IDs in sorted order.
func IDs() []string {
	ids := make([]string, 0, len(builtins))
	for id := range builtins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BOM is the UTF-8 byte order mark written at the start of flat files.
const BOM = "\ufeff"

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, BOM)
	return strings.ToLower(strings.TrimSpace(h))
}
