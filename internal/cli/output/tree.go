package output

import (
	"fmt"
	"io"

	"github.com/vatlidak/proctree-go/internal/core/domain"
)

// TreeFormatter renders snapshot records as an ASCII hierarchy.
//
// Records arrive in DFS pre-order, so every record's parent precedes
// it; a truncated snapshot still renders, showing the captured prefix.
type TreeFormatter struct {
	// ShowOwner adds the owning UID to each line.
	ShowOwner bool
}

// Format renders a []domain.TaskRecord. Other types are rejected.
func (f *TreeFormatter) Format(w io.Writer, data any) error {
	records, ok := data.([]domain.TaskRecord)
	if !ok {
		return fmt.Errorf("tree output requires task records, got %T", data)
	}
	return f.render(w, records)
}

func (f *TreeFormatter) render(w io.Writer, records []domain.TaskRecord) error {
	if len(records) == 0 {
		return nil
	}

	// Group children by parent, preserving the walk order.
	children := make(map[domain.TaskID][]domain.TaskRecord)
	for _, rec := range records[1:] {
		children[rec.ParentID] = append(children[rec.ParentID], rec)
	}

	root := records[0]
	if _, err := fmt.Fprintln(w, f.label(root)); err != nil {
		return err
	}
	return f.renderChildren(w, children, root.ID, "")
}

func (f *TreeFormatter) renderChildren(w io.Writer, children map[domain.TaskID][]domain.TaskRecord, parent domain.TaskID, prefix string) error {
	kids := children[parent]
	for i, kid := range kids {
		connector, childPrefix := "├── ", prefix+"│   "
		if i == len(kids)-1 {
			connector, childPrefix = "└── ", prefix+"    "
		}
		if _, err := fmt.Fprintln(w, prefix+connector+f.label(kid)); err != nil {
			return err
		}
		if err := f.renderChildren(w, children, kid.ID, childPrefix); err != nil {
			return err
		}
	}
	return nil
}

func (f *TreeFormatter) label(rec domain.TaskRecord) string {
	if f.ShowOwner {
		return fmt.Sprintf("%s [%s] (id %s, uid %d)", rec.Label, rec.State, rec.ID, rec.OwnerID)
	}
	return fmt.Sprintf("%s [%s] (id %s)", rec.Label, rec.State, rec.ID)
}
