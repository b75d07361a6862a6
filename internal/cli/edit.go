package cli

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/labbook/internal/core/schema"
	"github.com/example/labbook/internal/ports/primary"
	"github.com/example/labbook/internal/wire"
)

// EditCmd returns the edit command
func EditCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "edit [prep|usage]",
		Short: "Edit a whole table and write it back",
		Long: `Open a table as CSV in $EDITOR and overwrite the store with the result.
Rows may be changed, reordered, added or removed. Batch IDs must stay filled.

With --file the edited table is read from a CSV file instead.

Examples:
  labbook edit                  # edit preparations in $EDITOR
  labbook edit usage
  labbook edit prep --file fixed.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := parseTable(args)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)

			var header []string
			var rows [][]string
			if file != "" {
				header, rows, err = readSheetFile(file)
				if err != nil {
					return err
				}
			} else {
				svc, err := wire.LedgerService()
				if err != nil {
					return err
				}
				current, err := svc.LoadSheet(ctx, table)
				if err != nil {
					return err
				}

				header, rows, err = editInEditor(editorCommand(), current.Header, current.Rows)
				if err != nil {
					return err
				}
				if sameSheet(current.Header, current.Rows, header, rows) {
					fmt.Println("No changes")
					return nil
				}
			}

			adapter, err := wire.LedgerAdapter()
			if err != nil {
				return err
			}
			return adapter.Replace(ctx, primary.ReplaceTableRequest{Table: table, Header: header, Rows: rows})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the edited table from a CSV file")
	return cmd
}

func editorCommand() string {
	for _, key := range []string{"VISUAL", "EDITOR"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return "vi"
}

// editInEditor writes the sheet to a temp file, runs the editor on it and
// reads the result back.
func editInEditor(editor string, header []string, rows [][]string) ([]string, [][]string, error) {
	f, err := os.CreateTemp("", "labbook-*.csv")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if err := writeSheet(f, header, rows); err != nil {
		f.Close()
		return nil, nil, err
	}
	if err := f.Close(); err != nil {
		return nil, nil, err
	}

	// The editor setting may carry arguments, e.g. "code --wait".
	parts := strings.Fields(editor)
	c := exec.Command(parts[0], append(parts[1:], path)...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return nil, nil, fmt.Errorf("editor %q failed: %w", editor, err)
	}

	return readSheetFile(path)
}

func writeSheet(w io.Writer, header []string, rows [][]string) error {
	if _, err := io.WriteString(w, schema.BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func readSheetFile(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return readSheet(f)
}

func readSheet(r io.Reader) ([]string, [][]string, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(schema.BOM)); err == nil && string(b) == schema.BOM {
		br.Discard(len(schema.BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("edited table is empty; keep at least the header row")
	}

	var rows [][]string
	for _, rec := range records[1:] {
		if blankRow(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return records[0], rows, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func sameSheet(h1 []string, r1 [][]string, h2 []string, r2 [][]string) bool {
	if !slices.Equal(h1, h2) || len(r1) != len(r2) {
		return false
	}
	for i := range r1 {
		if !slices.Equal(r1[i], r2[i]) {
			return false
		}
	}
	return true
}
