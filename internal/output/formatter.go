// Package output provides formatters for displaying VM configuration
// records in various formats (table, YAML, JSON).
package output

import (
	"fmt"

	"github.com/jbweber/vmconf/internal/record"
)

// Format represents an output format type.
type Format string

const (
	// FormatTable is a human-readable KEY/VALUE table.
	FormatTable Format = "table"
	// FormatYAML is a YAML document for downstream tooling.
	FormatYAML Format = "yaml"
	// FormatJSON is a JSON document for machine consumption.
	FormatJSON Format = "json"
)

// Formatter formats configuration records for output.
type Formatter interface {
	// FormatRecord formats a record, keeping its key order.
	FormatRecord(rec *record.Record) (string, error)

	// FormatValue formats a single value: a string or a *record.Record.
	FormatValue(key string, value any) (string, error)
}

// Options contains options for formatting output.
type Options struct {
	// Format specifies the output format.
	Format Format
	// NoHeaders omits headers in table format.
	NoHeaders bool
}

// NewFormatter creates a new Formatter based on the specified format.
func NewFormatter(opts Options) (Formatter, error) {
	switch opts.Format {
	case FormatTable:
		return &TableFormatter{NoHeaders: opts.NoHeaders}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, yaml, json)", opts.Format)
	}
}

// ValidateFormat checks if a format string is valid.
func ValidateFormat(format string) error {
	switch Format(format) {
	case FormatTable, FormatYAML, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid formats: table, yaml, json)", format)
	}
}

// wrap turns a single value into a one-key record so every formatter can
// render it the same way as a full record.
func wrap(key string, value any) (*record.Record, error) {
	rec := record.New()
	if err := rec.Set(key, value); err != nil {
		return nil, err
	}
	return rec, nil
}
