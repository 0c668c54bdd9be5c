package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/vatlidak/proctree-go/internal/core/domain"
)

// Table holds tabular data ready to render. Commands either build one
// directly or let TableFormatter derive one from a domain value.
type Table struct {
	Headers []string
	Rows    [][]string
}

// SetHeaders sets the table headers.
func (t *Table) SetHeaders(headers ...string) {
	t.Headers = headers
}

// AddRow appends a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render writes the table with headers.
func (t *Table) Render(w io.Writer) error {
	return t.RenderWithOptions(w, false)
}

// RenderWithOptions writes the table, optionally without headers.
func (t *Table) RenderWithOptions(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !noHeaders && len(t.Headers) > 0 {
		if err := writeCells(tw, t.Headers); err != nil {
			return err
		}
	}
	for _, row := range t.Rows {
		if err := writeCells(tw, row); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func writeCells(w io.Writer, cells []string) error {
	for i, cell := range cells {
		if i > 0 {
			if _, err := io.WriteString(w, "\t"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, cell); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// TableFormatter renders values as aligned ASCII tables.
//
// Task records and snapshots get dedicated layouts; string-keyed maps
// become sorted key/value listings; anything else falls back to
// indented JSON.
type TableFormatter struct {
	Wide      bool
	NoHeaders bool
}

// Format renders data as a table.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case nil:
		return nil
	case *Table:
		return v.RenderWithOptions(w, f.NoHeaders)
	case Table:
		return v.RenderWithOptions(w, f.NoHeaders)
	case []domain.TaskRecord:
		return f.recordTable(v).RenderWithOptions(w, f.NoHeaders)
	case domain.TaskRecord:
		return f.recordTable([]domain.TaskRecord{v}).RenderWithOptions(w, f.NoHeaders)
	case *domain.Snapshot:
		return f.formatSnapshot(w, v)
	case domain.Snapshot:
		return f.formatSnapshot(w, &v)
	case map[string]any:
		return keyValueTable(v).RenderWithOptions(w, f.NoHeaders)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
}

// recordTable lays out records one per row, in the order given (DFS
// pre-order when they come from a snapshot). Wide mode adds the
// structural pointer columns the walk follows.
func (f *TableFormatter) recordTable(records []domain.TaskRecord) *Table {
	t := &Table{}
	if f.Wide {
		t.SetHeaders("ID", "PARENT", "LABEL", "STATE", "OWNER", "ELDEST CHILD", "NEXT SIBLING")
	} else {
		t.SetHeaders("ID", "PARENT", "LABEL", "STATE", "OWNER")
	}
	for _, rec := range records {
		row := []string{
			rec.ID.String(),
			idCell(rec.ParentID),
			orDash(rec.Label),
			string(rec.State),
			fmt.Sprintf("%d", rec.OwnerID),
		}
		if f.Wide {
			row = append(row, idCell(rec.EldestChildID), idCell(rec.NextSiblingID))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// formatSnapshot prints the snapshot header followed by its record
// table. A truncated walk is called out next to the capture count.
func (f *TableFormatter) formatSnapshot(w io.Writer, snap *domain.Snapshot) error {
	captured := fmt.Sprintf("%d of %d visited", len(snap.Records), snap.TotalVisited)
	if snap.Truncated() {
		captured += " (truncated)"
	}
	if _, err := fmt.Fprintf(w, "Snapshot: %s\nTaken at: %s\nCaptured: %s\n\n",
		snap.ID, snap.TakenAt.Format(time.RFC3339), captured); err != nil {
		return err
	}
	return f.recordTable(snap.Records).RenderWithOptions(w, f.NoHeaders)
}

// keyValueTable renders a string-keyed map with keys sorted, so
// output is stable across runs.
func keyValueTable(m map[string]any) *Table {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := &Table{Headers: []string{"KEY", "VALUE"}}
	for _, k := range keys {
		t.AddRow(k, valueCell(m[k]))
	}
	return t
}

// valueCell renders a decoded JSON value for a table cell.
func valueCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		return orDash(x)
	case bool:
		return fmt.Sprintf("%t", x)
	case float64:
		// JSON numbers decode as float64; print integers plainly.
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%.2f", x)
	case []any:
		if len(x) == 0 {
			return "-"
		}
		return fmt.Sprintf("[%d items]", len(x))
	case map[string]any:
		if len(x) == 0 {
			return "-"
		}
		return fmt.Sprintf("{%d keys}", len(x))
	default:
		return fmt.Sprintf("%v", x)
	}
}

func idCell(id domain.TaskID) string {
	if id.IsNone() {
		return "-"
	}
	return id.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
