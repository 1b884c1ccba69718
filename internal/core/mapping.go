package core

import (
	"fmt"
	"sort"
)

// FieldMapping is an ordered table from source field name to target field
// name. An empty target drops the field. A nil *FieldMapping means "no
// mapping": records pass through unchanged.
type FieldMapping struct {
	fields  []string
	targets map[string]string
	allowed map[string]bool // nil allows any target
}

// NewFieldMapping returns an empty mapping whose targets are restricted to
// targetFields. A nil targetFields leaves targets unrestricted.
func NewFieldMapping(targetFields []string) *FieldMapping {
	m := &FieldMapping{targets: make(map[string]string)}
	m.restrict(targetFields)
	return m
}

func (m *FieldMapping) restrict(targetFields []string) {
	if targetFields == nil {
		m.allowed = nil
		return
	}
	m.allowed = make(map[string]bool, len(targetFields))
	for _, f := range targetFields {
		m.allowed[f] = true
	}
}

func (m *FieldMapping) add(source, target string) {
	if m.targets == nil {
		m.targets = make(map[string]string)
	}
	if _, exists := m.targets[source]; !exists {
		m.fields = append(m.fields, source)
	}
	m.targets[source] = target
}

// ProposeDefaultMapping derives a mapping from the first record of src.
// Each source field maps to the target field of the same name when the
// model has one, and to "" otherwise.
func ProposeDefaultMapping(src Source, targetFields []string) *FieldMapping {
	m := NewFieldMapping(append([]string{}, targetFields...))

	sample, ok := src.Sample()
	if !ok {
		return m
	}
	for _, key := range sample.Keys() {
		if m.allowed[key] {
			m.add(key, key)
		} else {
			m.add(key, "")
		}
	}
	return m
}

// Set changes the target of one source field. target "" drops the field.
func (m *FieldMapping) Set(source, target string) error {
	if _, ok := m.targets[source]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSourceField, source)
	}
	if target != "" && m.allowed != nil && !m.allowed[target] {
		return fmt.Errorf("%w: %q", ErrUnknownTargetField, target)
	}
	m.targets[source] = target
	return nil
}

// Target returns the target for a source field.
func (m *FieldMapping) Target(source string) (string, bool) {
	if m == nil {
		return "", false
	}
	t, ok := m.targets[source]
	return t, ok
}

// Fields returns the source field names in order.
func (m *FieldMapping) Fields() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.fields))
	copy(out, m.fields)
	return out
}

// Len returns the number of source fields.
func (m *FieldMapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.fields)
}

// Mapped returns the number of source fields with a non-empty target.
func (m *FieldMapping) Mapped() int {
	n := 0
	for _, f := range m.Fields() {
		if m.targets[f] != "" {
			n++
		}
	}
	return n
}

// ValidateTargets checks every non-empty target against the model fields.
func (m *FieldMapping) ValidateTargets(fields []string) error {
	if m == nil {
		return nil
	}
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f] = true
	}

	var problems []string
	for _, src := range m.fields {
		dst := m.targets[src]
		if dst != "" && !known[dst] {
			problems = append(problems, fmt.Sprintf("%s: %q (mapped from %q)", ErrUnknownTargetField, dst, src))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return newValidationError(problems...)
	}
	return nil
}

// Clone returns an independent copy of the mapping.
func (m *FieldMapping) Clone() *FieldMapping {
	if m == nil {
		return nil
	}
	out := &FieldMapping{targets: make(map[string]string, len(m.targets))}
	for _, f := range m.fields {
		out.add(f, m.targets[f])
	}
	if m.allowed != nil {
		out.allowed = make(map[string]bool, len(m.allowed))
		for k := range m.allowed {
			out.allowed[k] = true
		}
	}
	return out
}

// ApplyMapping renames the fields of rec according to m.
//
// With a nil mapping rec is returned unchanged. Otherwise the result holds,
// in mapping order, rec[source] under its target for every source with a
// non-empty target that rec contains. Fields of rec not named by the mapping
// are dropped. When two sources share a target the later one wins; if the
// later source is missing from rec the target is left out entirely.
func ApplyMapping(rec Record, m *FieldMapping) Record {
	if m == nil {
		return rec
	}
	var out Record
	for _, src := range m.fields {
		dst := m.targets[src]
		if dst == "" {
			continue
		}
		if v, ok := rec.Get(src); ok {
			out.Set(dst, v)
		} else {
			out.Delete(dst)
		}
	}
	return out
}

// MarshalJSON writes the mapping as {"source":"target",...} in order.
func (m FieldMapping) MarshalJSON() ([]byte, error) {
	var rec Record
	for _, f := range m.fields {
		rec.Set(f, m.targets[f])
	}
	return rec.MarshalJSON()
}

// UnmarshalJSON reads {"source":"target",...}. A null target drops the
// field. Decoded mappings do not restrict targets; the import service
// checks them against the model.
func (m *FieldMapping) UnmarshalJSON(data []byte) error {
	var rec Record
	if err := rec.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("mapping: %w", err)
	}
	*m = FieldMapping{targets: make(map[string]string, rec.Len())}
	for _, key := range rec.Keys() {
		v, _ := rec.Get(key)
		switch target := v.(type) {
		case string:
			m.add(key, target)
		case nil:
			m.add(key, "")
		default:
			return fmt.Errorf("mapping: target for %q must be a string, got %s", key, describeValue(v))
		}
	}
	return nil
}

// MarshalYAML writes the mapping as an ordered YAML mapping.
func (m FieldMapping) MarshalYAML() (interface{}, error) {
	var rec Record
	for _, f := range m.fields {
		rec.Set(f, m.targets[f])
	}
	return rec.yamlNode()
}
