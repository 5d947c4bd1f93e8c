// Package hiera provides a read-only, layered key-value store in the style
// of Puppet Hiera. Layers are YAML documents held in priority order; a
// lookup returns the value from the first layer that resolves the whole
// path ("first" lookup strategy).
//
// Paths use dot notation with optional bracket segments:
//
//	infra.network
//	kvm.default.pool.name
//	stack.vm[web-01]
//	stack.vm[db.internal]   // brackets may contain dots
package hiera

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrKeyNotFound is returned when no layer resolves a key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrNotScalar is returned when a string is requested but the value is
	// a map or list.
	ErrNotScalar = errors.New("value is not a scalar")
)

// KeyError reports a key that no layer could resolve.
type KeyError struct {
	Key string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("lookup %s: %v", e.Key, ErrKeyNotFound)
}

func (e *KeyError) Unwrap() error {
	return ErrKeyNotFound
}

// TypeError reports a value of the wrong kind for the requested accessor.
type TypeError struct {
	Key  string
	Kind string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("lookup %s: %v (got %s)", e.Key, ErrNotScalar, e.Kind)
}

func (e *TypeError) Unwrap() error {
	return ErrNotScalar
}

// Layer is one named level of the hierarchy.
type Layer struct {
	Name string
	Data map[string]any
}

// ParseLayer parses YAML data into a layer.
// An empty document yields an empty layer.
func ParseLayer(name string, data []byte) (Layer, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return Layer{}, fmt.Errorf("failed to parse layer %s: %w", name, err)
	}
	if tree == nil {
		tree = map[string]any{}
	}
	return Layer{Name: name, Data: tree}, nil
}

// LoadLayer reads a YAML data file into a layer named after its path.
func LoadLayer(path string) (Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layer{}, fmt.Errorf("failed to read data file %s: %w", path, err)
	}
	return ParseLayer(path, data)
}

// Store is an ordered stack of layers. The first layer has the highest
// priority. A Store is safe for concurrent reads.
type Store struct {
	layers []Layer
}

// New creates a store from layers in priority order (highest first).
func New(layers ...Layer) *Store {
	return &Store{layers: layers}
}

// Layers returns the names of the layers in priority order.
func (s *Store) Layers() []string {
	names := make([]string, 0, len(s.layers))
	for _, l := range s.layers {
		names = append(names, l.Name)
	}
	return names
}

// Lookup returns the raw value for key from the first layer that
// resolves it. Values explicitly set to null are treated as absent.
func (s *Store) Lookup(key string) (any, error) {
	return s.lookup(key, parsePath(key))
}

// LookupPath is like Lookup but takes the path already split into
// segments. Segments are matched verbatim, so they may contain dots or
// brackets.
func (s *Store) LookupPath(path ...string) (any, error) {
	return s.lookup(strings.Join(path, "."), path)
}

func (s *Store) lookup(key string, path []string) (any, error) {
	if len(path) == 0 {
		return nil, &KeyError{Key: key}
	}

	for _, l := range s.layers {
		if v, ok := getValueByPath(l.Data, path); ok {
			return v, nil
		}
	}
	return nil, &KeyError{Key: key}
}

// String returns the value for key rendered as a string.
// Integers, floats and booleans are formatted; maps and lists are an error.
func (s *Store) String(key string) (string, error) {
	v, err := s.Lookup(key)
	if err != nil {
		return "", err
	}
	return scalar(key, v)
}

// StringPath is String for a path already split into segments.
func (s *Store) StringPath(path ...string) (string, error) {
	v, err := s.LookupPath(path...)
	if err != nil {
		return "", err
	}
	return scalar(strings.Join(path, "."), v)
}

func scalar(key string, v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	case map[string]any, map[any]any:
		return "", &TypeError{Key: key, Kind: "map"}
	case []any:
		return "", &TypeError{Key: key, Kind: "list"}
	default:
		return "", &TypeError{Key: key, Kind: fmt.Sprintf("%T", v)}
	}
}

// getValueByPath walks nested maps along path. Lists are indexed by
// numeric segments.
func getValueByPath(current any, path []string) (any, bool) {
	for _, key := range path {
		switch node := current.(type) {
		case map[string]any:
			v, ok := node[key]
			if !ok {
				return nil, false
			}
			current = v
		case map[any]any:
			// Mappings with non-string keys, e.g. numeric VM ids
			found := false
			for k, v := range node {
				if fmt.Sprint(k) == key {
					current, found = v, true
					break
				}
			}
			if !found {
				return nil, false
			}
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			current = node[i]
		default:
			return nil, false
		}
	}

	if current == nil {
		return nil, false
	}
	return current, true
}

// parsePath splits a key into segments, supporting both dot and bracket
// notation. Dots inside brackets are part of the segment.
func parsePath(path string) []string {
	var keys []string
	var currentKey strings.Builder
	inBracket := false

	for _, char := range path {
		switch char {
		case '.':
			if inBracket {
				currentKey.WriteRune(char)
				continue
			}
			if currentKey.Len() > 0 {
				keys = append(keys, currentKey.String())
				currentKey.Reset()
			}
		case '[':
			inBracket = true
			if currentKey.Len() > 0 {
				keys = append(keys, currentKey.String())
				currentKey.Reset()
			}
		case ']':
			inBracket = false
			keys = append(keys, currentKey.String())
			currentKey.Reset()
		default:
			currentKey.WriteRune(char)
		}
	}

	if currentKey.Len() > 0 {
		keys = append(keys, currentKey.String())
	}

	return keys
}
