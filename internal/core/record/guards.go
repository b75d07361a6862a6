// Package record contains the pure business logic for logging records.
// Guards are pure functions that evaluate preconditions without side effects.
package record

import (
	"fmt"
	"strings"

	"github.com/example/labbook/internal/core/schema"
	"github.com/example/labbook/internal/models"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// AppendContext provides context for the append guard.
type AppendContext struct {
	Schema schema.Schema
	Record models.Record
}

// CanAppendRecord evaluates whether a record may be appended to its table.
// Rules:
// - Every required field must be non-empty (operator, material, timestamp, batch ID)
// - Every non-empty typed field must parse (dates, pH range, yes/no flags)
func CanAppendRecord(ctx AppendContext) GuardResult {
	var problems []string

	// Rule 1: required fields
	for _, f := range ctx.Schema.Fields {
		if f.Required && strings.TrimSpace(schema.Get(ctx.Record, f)) == "" {
			problems = append(problems, fmt.Sprintf("%s is required", f.Header))
		}
	}

	// Rule 2: typed values
	for _, f := range ctx.Schema.Fields {
		if err := schema.CheckValue(f, schema.Get(ctx.Record, f)); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return GuardResult{
			Allowed: false,
			Reason:  strings.Join(problems, "; "),
		}
	}

	return GuardResult{Allowed: true}
}
