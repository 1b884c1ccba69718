package core

import (
	"bytes"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

// jsonAPI is the codec used for every JSON document the pipeline reads or writes.
var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Record is an ordered mapping from field name to value.
//
// Values are limited to string, int64, float64, bool, nil, Record and []any
// (whose elements follow the same rules). Key order is the order in which
// keys were first set; setting an existing key replaces its value in place.
//
// The zero value is an empty record ready for use.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord builds a record from alternating key/value arguments.
// It panics if a key is not a string, which only happens on programmer error.
func NewRecord(kv ...any) Record {
	var r Record
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("NewRecord: key at position %d is %T, not string", i, kv[i]))
		}
		r.Set(key, kv[i+1])
	}
	return r
}

// Set stores value under key, appending key to the field order if it is new.
func (r *Record) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Delete removes key and its value, keeping the order of the other fields.
func (r *Record) Delete(key string) {
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i:i], r.keys[i+1:]...)
			break
		}
	}
}

// Get returns the value for key and whether the key is present.
func (r Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key is present.
func (r Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Keys returns the field names in order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.keys)
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	var out Record
	for _, k := range r.keys {
		out.Set(k, cloneValue(r.values[k]))
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Record:
		return val.Clone()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// ToMap converts the record, including nested records, into plain maps.
// Field order is lost.
func (r Record) ToMap() map[string]any {
	out := make(map[string]any, len(r.keys))
	for _, k := range r.keys {
		out[k] = plainValue(r.values[k])
	}
	return out
}

func plainValue(v any) any {
	switch val := v.(type) {
	case Record:
		return val.ToMap()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plainValue(item)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON writes the record as a JSON object in field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := jsonAPI.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := jsonAPI.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping its key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		return nil
	}
	v, err := decodeJSON(data)
	if err != nil {
		return err
	}
	rec, ok := v.(Record)
	if !ok {
		return fmt.Errorf("expected a JSON object, got %s", describeValue(v))
	}
	*r = rec
	return nil
}

// MarshalYAML renders the record as a YAML mapping in field order.
func (r Record) MarshalYAML() (interface{}, error) {
	return r.yamlNode()
}

func (r Record) yamlNode() (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range r.keys {
		val, err := valueNode(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			val,
		)
	}
	return node, nil
}

func valueNode(v any) (*yaml.Node, error) {
	switch val := v.(type) {
	case Record:
		return val.yamlNode()
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range val {
			n, err := valueNode(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil
	case time.Time:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: val.Format(time.RFC3339)}, nil
	default:
		n := &yaml.Node{}
		if err := n.Encode(val); err != nil {
			return nil, err
		}
		return n, nil
	}
}

// describeValue names the kind of a value for error messages.
func describeValue(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case Record:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int64, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
