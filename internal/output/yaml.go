package output

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/vmconf/internal/record"
)

// YAMLFormatter formats records as YAML.
type YAMLFormatter struct{}

// FormatRecord formats a record as a YAML mapping.
func (f *YAMLFormatter) FormatRecord(rec *record.Record) (string, error) {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal record to YAML: %w", err)
	}

	return string(data), nil
}

// FormatValue formats a single value as a one-key YAML mapping.
func (f *YAMLFormatter) FormatValue(key string, value any) (string, error) {
	rec, err := wrap(key, value)
	if err != nil {
		return "", err
	}
	return f.FormatRecord(rec)
}
