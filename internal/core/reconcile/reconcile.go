// Package reconcile validates a user-edited copy of a table before it
// replaces the stored table.
// This is part of the Functional Core - no I/O, only pure functions.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/example/labbook/internal/apperr"
	"github.com/example/labbook/internal/core/schema"
	"github.com/example/labbook/internal/models"
)

// Violation is one immutable cell that was left blank or changed.
type Violation struct {
	Row   int // 1-based data row, the header is row 0
	Field string
	Value string // the edited value, empty when blanked
}

// Reconcile accepts a freely edited table (rows added, removed, reordered
// or changed) and returns it unchanged, ready to overwrite the store.
//
// immutable names the fields the caller treats as read-only. A row is
// rejected when it leaves such a field blank (for fields the schema marks
// Required) or carries a value that does not occur in that field of the
// persisted table. Pass a nil persisted table to skip the second check,
// e.g. when copying a table into a fresh store.
// Batch-ID uniqueness across rows is not checked here.
func Reconcile(s schema.Schema, persisted *models.Table, edited models.Table, immutable []string) (models.Table, error) {
	var guarded []schema.Field
	for _, name := range immutable {
		f, ok := s.Field(name)
		if !ok {
			return edited, apperr.Derive(apperr.ErrValidation,
				fmt.Sprintf("%s has no field %q", s.ID, name))
		}
		guarded = append(guarded, f)
	}

	known := make(map[string]map[string]bool, len(guarded))
	if persisted != nil {
		for _, f := range guarded {
			values := make(map[string]bool)
			for _, r := range persisted.Records {
				if v := strings.TrimSpace(schema.Get(r, f)); v != "" {
					values[v] = true
				}
			}
			known[f.Name] = values
		}
	}

	var violations []Violation
	for i, r := range edited.Records {
		for _, f := range guarded {
			v := strings.TrimSpace(schema.Get(r, f))
			switch {
			case v == "" && f.Required:
				violations = append(violations, Violation{Row: i + 1, Field: f.Header})
			case v != "" && persisted != nil && !known[f.Name][v]:
				violations = append(violations, Violation{Row: i + 1, Field: f.Header, Value: v})
			}
		}
	}

	if len(violations) > 0 {
		return edited, violationError(violations)
	}
	return edited, nil
}

func violationError(vs []Violation) error {
	fields := make(map[string]any, len(vs))
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		key := fmt.Sprintf("row %d", v.Row)
		if prev, ok := fields[key]; ok {
			fields[key] = prev.(string) + ", " + v.Field
		} else {
			fields[key] = v.Field
		}
		if v.Value == "" {
			parts = append(parts, fmt.Sprintf("row %d: %s left blank", v.Row, v.Field))
		} else {
			parts = append(parts, fmt.Sprintf("row %d: %s changed to %q", v.Row, v.Field, v.Value))
		}
	}

	msg := fmt.Sprintf("edited table rejected, read-only fields must keep their stored values (%s)", strings.Join(parts, "; "))
	return apperr.WithFields(apperr.Derive(apperr.ErrValidation, msg), fields)
}
