package output

import (
	"encoding/json"
	"fmt"

	"github.com/jbweber/vmconf/internal/record"
)

// JSONFormatter formats records as JSON.
type JSONFormatter struct{}

// FormatRecord formats a record as an indented JSON object.
func (f *JSONFormatter) FormatRecord(rec *record.Record) (string, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal record to JSON: %w", err)
	}

	return string(data) + "\n", nil
}

// FormatValue formats a single value as a one-key JSON object.
func (f *JSONFormatter) FormatValue(key string, value any) (string, error) {
	rec, err := wrap(key, value)
	if err != nil {
		return "", err
	}
	return f.FormatRecord(rec)
}
