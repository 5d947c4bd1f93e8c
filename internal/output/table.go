package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/jbweber/vmconf/internal/record"
)

// TableFormatter formats records as a two-column table of dotted keys.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatRecord formats every string leaf of a record as a table row.
func (f *TableFormatter) FormatRecord(rec *record.Record) (string, error) {
	fields := rec.Flatten()
	if len(fields) == 0 {
		return "No fields\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "KEY\tVALUE")
	}

	for _, field := range fields {
		value := field.Value
		if value == "" {
			value = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", field.Path, value)
	}

	_ = w.Flush()
	return buf.String(), nil
}

// FormatValue formats a single value, prefixing nested keys with key.
func (f *TableFormatter) FormatValue(key string, value any) (string, error) {
	rec, err := wrap(key, value)
	if err != nil {
		return "", err
	}
	return f.FormatRecord(rec)
}
