package output

import (
	"bytes"
	"encoding/json"
	"io"
)

// JSONFormatter writes JSON, the stable interchange form for piping
// CLI output into jq or scripts. Indented by default.
type JSONFormatter struct {
	// Compact emits a single line instead of indented output.
	Compact bool
}

// Format encodes data as JSON followed by a newline. A
// json.RawMessage passes through re-formatted, not re-encoded.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	if raw, ok := data.(json.RawMessage); ok {
		return f.writeRaw(w, raw)
	}
	enc := json.NewEncoder(w)
	if !f.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}

func (f *JSONFormatter) writeRaw(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	var err error
	if f.Compact {
		err = json.Compact(&buf, raw)
	} else {
		err = json.Indent(&buf, raw, "", "  ")
	}
	if err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}
