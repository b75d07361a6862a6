// Package cli provides thin CLI adapters that translate between CLI concerns
// and application services. Adapters handle output formatting but delegate
// business logic to services.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/example/labbook/internal/apperr"
	"github.com/example/labbook/internal/core/schema"
	"github.com/example/labbook/internal/models"
	"github.com/example/labbook/internal/ports/primary"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed)
	idColor   = color.New(color.FgHiCyan)
	dimColor  = color.New(color.FgHiBlack)
)

func okMark() string   { return okColor.Sprint("✓") }
func warnMark() string { return warnColor.Sprint("!") }
func failMark() string { return failColor.Sprint("✗") }

// LedgerAdapter is a thin adapter that translates CLI operations to LedgerService calls.
type LedgerAdapter struct {
	service primary.LedgerService
	out     io.Writer
}

// NewLedgerAdapter creates a new LedgerAdapter with the given service.
func NewLedgerAdapter(service primary.LedgerService, out io.Writer) *LedgerAdapter {
	return &LedgerAdapter{
		service: service,
		out:     out,
	}
}

// Init provisions every table and reports what was created.
func (a *LedgerAdapter) Init(ctx context.Context) error {
	statuses, err := a.service.InitTables(ctx)
	for _, s := range statuses {
		switch {
		case s.Err != nil:
			fmt.Fprintf(a.out, "%s %-6s %s: %v\n", failMark(), s.Table, s.Store, s.Err)
		case s.Created:
			fmt.Fprintf(a.out, "%s %-6s %s: created with %s header\n", okMark(), s.Table, s.Store, s.SchemaID)
		default:
			fmt.Fprintf(a.out, "%s %-6s %s: already set up (%s)\n", okMark(), s.Table, s.Store, s.SchemaID)
		}
	}
	return err
}

// LogPreparation appends a preparation record and prints its batch ID.
func (a *LedgerAdapter) LogPreparation(ctx context.Context, req primary.PreparationRequest) error {
	resp, err := a.service.LogPreparation(ctx, req)
	if err != nil {
		return err
	}

	if resp.Record.BatchID != "" {
		fmt.Fprintf(a.out, "%s Logged preparation %s: %s by %s\n",
			okMark(), idColor.Sprint(resp.Record.BatchID), resp.Record.Material, resp.Record.Operator)
	} else {
		fmt.Fprintf(a.out, "%s Logged preparation: %s by %s\n", okMark(), resp.Record.Material, resp.Record.Operator)
	}
	fmt.Fprintf(a.out, "  %s\n", dimColor.Sprintf("%s at %s", resp.Store, resp.Record.Timestamp))
	return nil
}

// LogUsage appends a usage record.
func (a *LedgerAdapter) LogUsage(ctx context.Context, req primary.UsageRequest) error {
	resp, err := a.service.LogUsage(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Logged usage: %s by %s\n", okMark(), resp.Record.Material, resp.Record.Operator)
	fmt.Fprintf(a.out, "  %s\n", dimColor.Sprintf("%s at %s", resp.Store, resp.Record.Timestamp))
	return nil
}

// List prints a table, newest first unless oldestFirst is set.
func (a *LedgerAdapter) List(ctx context.Context, table models.TableKind, oldestFirst bool) error {
	sch, err := a.service.Schema(table)
	if err != nil {
		return err
	}
	t, err := a.service.ListRecords(ctx, primary.ListRecordsRequest{Table: table, NewestFirst: !oldestFirst})
	if err != nil {
		return err
	}

	if t.Len() == 0 {
		fmt.Fprintf(a.out, "No %s records found\n", table)
		return nil
	}

	header, rows, err := sch.Encode(*t)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(flatten(row), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "\n%d %s records\n", t.Len(), table)
	return nil
}

// Show prints one preparation record field by field.
func (a *LedgerAdapter) Show(ctx context.Context, batchID string) error {
	sch, err := a.service.Schema(models.TablePreparation)
	if err != nil {
		return err
	}
	t, err := a.service.ListRecords(ctx, primary.ListRecordsRequest{Table: models.TablePreparation})
	if err != nil {
		return err
	}

	for _, r := range t.Records {
		if r.BatchID != batchID {
			continue
		}
		tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		for _, f := range sch.Fields {
			fmt.Fprintf(tw, "%s:\t%s\n", f.Header, schema.Get(r, f))
		}
		return tw.Flush()
	}
	return apperr.Derive(apperr.ErrNotFound, fmt.Sprintf("batch %s not found", batchID))
}

// NextID prints the batch ID the next preparation would get.
func (a *LedgerAdapter) NextID(ctx context.Context) error {
	id, err := a.service.NextBatchID(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, id)
	return nil
}

// Export writes a snapshot to output ("-" for stdout, "" for its default
// file name) or, with upload set, publishes it to object storage.
func (a *LedgerAdapter) Export(ctx context.Context, req primary.SnapshotRequest, output string, upload bool) error {
	if upload {
		resp, err := a.service.PublishSnapshot(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s Uploaded %s to %s\n", okMark(), resp.Filename, resp.Location)
		return nil
	}

	snap, err := a.service.ExportSnapshot(ctx, req)
	if err != nil {
		return err
	}

	if output == "-" {
		_, err := a.out.Write(snap.Data)
		return err
	}
	if output == "" {
		output = snap.Filename
	}
	if err := os.WriteFile(output, snap.Data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	fmt.Fprintf(a.out, "%s Exported %s to %s\n", okMark(), req.Table, output)
	return nil
}

// Replace overwrites a table with an edited copy.
func (a *LedgerAdapter) Replace(ctx context.Context, req primary.ReplaceTableRequest) error {
	resp, err := a.service.ReplaceTable(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Saved %s table to %s (%d rows, was %d)\n",
		okMark(), resp.Table, resp.Store, resp.RowsAfter, resp.RowsBefore)
	for _, id := range resp.DuplicateIDs {
		fmt.Fprintf(a.out, "%s batch ID %s appears more than once\n", warnMark(), id)
	}
	return nil
}

// Copy copies every table from src into dst, provisioning dst first.
func (a *LedgerAdapter) Copy(ctx context.Context, src, dst primary.LedgerService) error {
	if _, err := dst.InitTables(ctx); err != nil {
		return err
	}

	for _, kind := range models.TableKinds {
		sheet, err := src.LoadSheet(ctx, kind)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", kind, err)
		}
		resp, err := dst.ReplaceTable(ctx, primary.ReplaceTableRequest{
			Table:  kind,
			Header: sheet.Header,
			Rows:   sheet.Rows,
			Import: true,
		})
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", kind, err)
		}
		fmt.Fprintf(a.out, "%s Copied %d %s rows to %s\n", okMark(), resp.RowsAfter, kind, resp.Store)
	}
	return nil
}

// Doctor reports the health of every table. It returns an error when a
// table cannot be loaded.
func (a *LedgerAdapter) Doctor(ctx context.Context) error {
	failed := 0
	for _, s := range a.service.CheckTables(ctx) {
		if s.Err != nil {
			failed++
			fmt.Fprintf(a.out, "%s %-6s %s (%s): %v\n", failMark(), s.Table, s.Store, s.SchemaID, s.Err)
			continue
		}

		fmt.Fprintf(a.out, "%s %-6s %s (%s): %d rows\n", okMark(), s.Table, s.Store, s.SchemaID, s.Rows)
		for _, id := range s.DuplicateIDs {
			fmt.Fprintf(a.out, "  %s duplicate batch ID %s\n", warnMark(), id)
		}
		for _, id := range s.MalformedIDs {
			fmt.Fprintf(a.out, "  %s malformed batch ID %q\n", warnMark(), id)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d table(s) could not be loaded", failed)
	}
	return nil
}

// flatten keeps multi-line notes on one terminal line.
func flatten(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.ReplaceAll(strings.ReplaceAll(c, "\r\n", " "), "\n", " ")
	}
	return out
}
