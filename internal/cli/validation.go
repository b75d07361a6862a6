package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/example/labbook/internal/core/batch"
	"github.com/example/labbook/internal/models"
)

var shortSequence = regexp.MustCompile(`^\d{1,3}$`)

// parseTable resolves a table argument, defaulting to the prep table.
func parseTable(args []string) (models.TableKind, error) {
	if len(args) == 0 {
		return models.TablePreparation, nil
	}
	kind, ok := models.ParseTableKind(args[0])
	if !ok {
		return "", fmt.Errorf("unknown table '%s'. Expected prep or usage", args[0])
	}
	return kind, nil
}

// validateBatchID checks a batch ID typed on the command line.
// Returns an error with a helpful message for common slips.
func validateBatchID(id string) error {
	if batch.WellFormed(id) {
		return nil
	}

	// Just the sequence, e.g. "3"
	if shortSequence.MatchString(id) {
		n, _ := strconv.Atoi(id)
		return fmt.Errorf("invalid batch ID '%s'. Use the full ID, e.g. 20260107%s%02d", id, batch.Infix, n)
	}

	// Wrong case
	if batch.WellFormed(strings.ToUpper(id)) {
		return fmt.Errorf("invalid batch ID '%s'. IDs are case-sensitive, use: %s", id, strings.ToUpper(id))
	}

	return fmt.Errorf("invalid batch ID '%s'. Expected format: YYYYMMDD%sNN", id, batch.Infix)
}
