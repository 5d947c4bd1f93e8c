// Package record provides the VM configuration record: an ordered,
// set-once mapping of string keys to strings or nested records.
//
// A key can be assigned exactly once. Reading a key that was never
// assigned is an error rather than a zero value, so a half-built record
// cannot be mistaken for a complete one.
//
//	rec := record.New()
//	net := record.New()
//	_ = net.Set("ip", "10.0.0.10")
//	_ = rec.Set("network", net)
//	ip, _ := rec.Lookup("network.ip") // "10.0.0.10"
package record

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAlreadySet is returned when a key is assigned a second time.
	ErrAlreadySet = errors.New("attribute can't be overridden")

	// ErrNotAvailable is returned when reading a key that was never assigned.
	ErrNotAvailable = errors.New("attribute is not available")

	// ErrInvalidValue is returned when assigning a value that is neither a
	// string nor a *Record.
	ErrInvalidValue = errors.New("invalid attribute value")

	// ErrWrongKind is returned when String finds a record or Record finds
	// a string.
	ErrWrongKind = errors.New("attribute has the wrong kind")
)

// AttributeError reports a failed access to a record key.
type AttributeError struct {
	Key string
	Err error
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("attribute %s: %v", e.Key, e.Err)
}

func (e *AttributeError) Unwrap() error {
	return e.Err
}

// Record is an ordered, set-once key/value container.
// The zero value is not usable; create records with New.
type Record struct {
	keys   []string
	values map[string]any
}

// New returns an empty record.
func New() *Record {
	return &Record{values: make(map[string]any)}
}

// Set assigns value to key. Value must be a string or a *Record.
// Assigning an existing key fails with ErrAlreadySet.
func (r *Record) Set(key string, value any) error {
	if key == "" {
		return &AttributeError{Key: key, Err: fmt.Errorf("%w: key cannot be empty", ErrInvalidValue)}
	}
	if _, exists := r.values[key]; exists {
		return &AttributeError{Key: key, Err: ErrAlreadySet}
	}

	switch v := value.(type) {
	case string:
	case *Record:
		if v == nil {
			return &AttributeError{Key: key, Err: fmt.Errorf("%w: nil record", ErrInvalidValue)}
		}
	default:
		return &AttributeError{Key: key, Err: fmt.Errorf("%w: %T", ErrInvalidValue, value)}
	}

	r.keys = append(r.keys, key)
	r.values[key] = value
	return nil
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (any, error) {
	v, ok := r.values[key]
	if !ok {
		return nil, &AttributeError{Key: key, Err: ErrNotAvailable}
	}
	return v, nil
}

// String returns the string stored under key.
func (r *Record) String(key string) (string, error) {
	v, err := r.Get(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", &AttributeError{Key: key, Err: fmt.Errorf("%w: record, not a string", ErrWrongKind)}
	}
	return s, nil
}

// Record returns the nested record stored under key.
func (r *Record) Record(key string) (*Record, error) {
	v, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	sub, ok := v.(*Record)
	if !ok {
		return nil, &AttributeError{Key: key, Err: fmt.Errorf("%w: string, not a record", ErrWrongKind)}
	}
	return sub, nil
}

// Lookup walks nested records by dotted path, e.g. "network.ip".
func (r *Record) Lookup(path string) (any, error) {
	parts := strings.Split(path, ".")
	current := r
	for i, part := range parts {
		v, err := current.Get(part)
		if err != nil {
			return nil, &AttributeError{Key: strings.Join(parts[:i+1], "."), Err: ErrNotAvailable}
		}
		if i == len(parts)-1 {
			return v, nil
		}
		sub, ok := v.(*Record)
		if !ok {
			return nil, &AttributeError{Key: strings.Join(parts[:i+2], "."), Err: ErrNotAvailable}
		}
		current = sub
	}
	return nil, &AttributeError{Key: path, Err: ErrNotAvailable}
}

// Has reports whether key has been assigned.
func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Keys returns the assigned keys in insertion order.
func (r *Record) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Len returns the number of assigned keys.
func (r *Record) Len() int {
	return len(r.keys)
}
