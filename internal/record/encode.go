package record

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Field is a leaf value of a record addressed by its dotted path.
type Field struct {
	Path  string
	Value string
}

// Flatten returns every string leaf in insertion order, depth first.
// An empty nested record produces no fields.
func (r *Record) Flatten() []Field {
	var fields []Field
	r.flatten("", &fields)
	return fields
}

func (r *Record) flatten(prefix string, fields *[]Field) {
	for _, key := range r.keys {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		switch v := r.values[key].(type) {
		case string:
			*fields = append(*fields, Field{Path: path, Value: v})
		case *Record:
			v.flatten(path, fields)
		}
	}
}

// MarshalYAML renders the record as a YAML mapping that keeps insertion order.
func (r *Record) MarshalYAML() (interface{}, error) {
	return r.node(), nil
}

func (r *Record) node() *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, key := range r.keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
		var valueNode *yaml.Node
		switch v := r.values[key].(type) {
		case string:
			valueNode = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
		case *Record:
			valueNode = v.node()
		}
		n.Content = append(n.Content, keyNode, valueNode)
	}
	return n
}

// Node returns the record as a yaml.Node tree, suitable for Decode into a
// typed struct.
func (r *Record) Node() *yaml.Node {
	return r.node()
}

// MarshalJSON renders the record as a JSON object that keeps insertion order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyData, err := json.Marshal(key)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal key %q: %w", key, err)
		}
		buf.Write(keyData)
		buf.WriteByte(':')

		valueData, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal value of %q: %w", key, err)
		}
		buf.Write(valueData)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
