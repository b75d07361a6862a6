package schema

import (
	"fmt"
	"strings"

	"github.com/example/labbook/internal/apperr"
	"github.com/example/labbook/internal/models"
)

// Get reads the value a field maps to on a record.
func Get(r models.Record, f Field) string {
	switch f.Role {
	case RoleBatchID:
		return r.BatchID
	case RoleTimestamp:
		return r.Timestamp
	case RoleMaterial:
		return r.Material
	case RoleOperator:
		return r.Operator
	case RoleLot:
		return r.Lot(f.Name)
	case RoleNotes:
		return r.Notes
	default:
		return r.Attr(f.Name)
	}
}

// Set writes v into the record attribute a field maps to.
func Set(r *models.Record, f Field, v string) {
	switch f.Role {
	case RoleBatchID:
		r.BatchID = v
	case RoleTimestamp:
		r.Timestamp = v
	case RoleMaterial:
		r.Material = v
	case RoleOperator:
		r.Operator = v
	case RoleLot:
		if r.Lots == nil {
			r.Lots = make(map[string]string)
		}
		r.Lots[f.Name] = v
	case RoleNotes:
		r.Notes = v
	default:
		if r.Attrs == nil {
			r.Attrs = make(map[string]string)
		}
		r.Attrs[f.Name] = v
	}
}

// ResolveHeader maps each header cell to a schema field.
// The header must name every field exactly once and nothing else.
// Trailing blank header cells are ignored.
func (s Schema) ResolveHeader(header []string) ([]Field, error) {
	header = trimHeader(header)
	fields := make([]Field, len(header))
	seen := make(map[string]string, len(header))
	var unknown []string

	for i, h := range header {
		f, ok := s.FieldForHeader(h)
		if !ok {
			unknown = append(unknown, fmt.Sprintf("%q", strings.TrimSpace(strings.TrimPrefix(h, BOM))))
			continue
		}
		if prev, dup := seen[f.Name]; dup {
			return nil, apperr.Derive(apperr.ErrSchemaMismatch,
				fmt.Sprintf("%s: columns %q and %q both map to %s", s.ID, prev, h, f.Name))
		}
		seen[f.Name] = h
		fields[i] = f
	}

	var missing []string
	for _, f := range s.Fields {
		if _, ok := seen[f.Name]; !ok {
			missing = append(missing, fmt.Sprintf("%q", f.Header))
		}
	}

	if len(unknown) > 0 || len(missing) > 0 {
		var parts []string
		if len(unknown) > 0 {
			parts = append(parts, "unknown columns "+strings.Join(unknown, ", "))
		}
		if len(missing) > 0 {
			parts = append(parts, "missing columns "+strings.Join(missing, ", "))
		}
		return nil, apperr.Derive(apperr.ErrSchemaMismatch,
			fmt.Sprintf("%s: %s", s.ID, strings.Join(parts, "; ")))
	}

	return fields, nil
}

// Decode maps an untyped header and rows to a typed table.
// An empty store (no header, no rows) yields an empty table with the
// canonical header.
func (s Schema) Decode(header []string, rows [][]string) (models.Table, error) {
	t := models.Table{Kind: s.Table, SchemaID: s.ID}

	header = trimHeader(header)
	if len(header) == 0 {
		if len(rows) > 0 {
			return t, apperr.Derive(apperr.ErrSchemaMismatch, fmt.Sprintf("%s: store has rows but no header", s.ID))
		}
		t.Header = s.Headers()
		return t, nil
	}

	fields, err := s.ResolveHeader(header)
	if err != nil {
		return t, err
	}

	t.Header = cleanHeader(header)
	t.Records = make([]models.Record, 0, len(rows))
	for i, row := range rows {
		if len(row) > len(fields) {
			for _, extra := range row[len(fields):] {
				if strings.TrimSpace(extra) != "" {
					return t, apperr.Derive(apperr.ErrSchemaMismatch,
						fmt.Sprintf("%s: row %d has %d cells but the header has %d columns", s.ID, i+2, len(row), len(fields)))
				}
			}
		}

		var r models.Record
		for j, f := range fields {
			v := ""
			if j < len(row) {
				v = row[j]
			}
			Set(&r, f, v)
		}
		t.Records = append(t.Records, r)
	}

	return t, nil
}

// EncodeRecord renders a record as a row in the given header order.
func (s Schema) EncodeRecord(header []string, r models.Record) ([]string, error) {
	fields, err := s.ResolveHeader(header)
	if err != nil {
		return nil, err
	}
	return encodeRow(fields, r), nil
}

// Encode renders a table as a header row plus data rows. The table's own
// header order is kept; a table without one uses the canonical order.
func (s Schema) Encode(t models.Table) ([]string, [][]string, error) {
	header := trimHeader(t.Header)
	if len(header) == 0 {
		header = s.Headers()
	}

	fields, err := s.ResolveHeader(header)
	if err != nil {
		return nil, nil, err
	}

	rows := make([][]string, len(t.Records))
	for i, r := range t.Records {
		rows[i] = encodeRow(fields, r)
	}
	return cleanHeader(header), rows, nil
}

func encodeRow(fields []Field, r models.Record) []string {
	row := make([]string, len(fields))
	for i, f := range fields {
		row[i] = Get(r, f)
	}
	return row
}

// trimHeader drops blank cells from the end of a header row, as left by
// spreadsheet programs that export unused columns.
func trimHeader(header []string) []string {
	n := len(header)
	for n > 0 && strings.TrimSpace(strings.TrimPrefix(header[n-1], BOM)) == "" {
		n--
	}
	return header[:n]
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(strings.TrimPrefix(h, BOM))
	}
	return out
}
