package core

import (
	"errors"
	"fmt"
)

// Format identifies the decoder used for an uploaded file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// ParseWarning describes a row the CSV parser skipped.
type ParseWarning struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Source is the parsed, in-memory content of one uploaded file.
//
// A singleton source holds exactly one record and has Collection false.
// A collection source holds zero or more records in file order.
type Source struct {
	Records    []Record       `json:"-"`
	Collection bool           `json:"-"`
	Format     Format         `json:"-"`
	Warnings   []ParseWarning `json:"-"`
}

// SingleSource wraps one record as a singleton source.
func SingleSource(rec Record) Source {
	return Source{Records: []Record{rec}}
}

// CollectionSource wraps records as a collection source.
func CollectionSource(recs ...Record) Source {
	if recs == nil {
		recs = []Record{}
	}
	return Source{Records: recs, Collection: true}
}

// IsZero reports whether no content was loaded.
func (s Source) IsZero() bool {
	return s.Records == nil
}

// Len returns the number of records.
func (s Source) Len() int {
	return len(s.Records)
}

// Sample returns the record used to derive field names: the first record of
// a collection or the singleton itself.
func (s Source) Sample() (Record, bool) {
	if len(s.Records) == 0 {
		return Record{}, false
	}
	return s.Records[0], true
}

// Batch returns the records as a sequence. A singleton becomes a
// one-element batch.
func (s Source) Batch() []Record {
	return s.Records
}

// Single returns the singleton record. For a collection it returns the only
// element and fails when there is not exactly one.
func (s Source) Single() (Record, error) {
	if len(s.Records) != 1 {
		return Record{}, fmt.Errorf("expected a single record, source has %d", len(s.Records))
	}
	return s.Records[0], nil
}

// MarshalJSON writes an object for a singleton and an array for a collection.
func (s Source) MarshalJSON() ([]byte, error) {
	if !s.Collection && len(s.Records) == 1 {
		return s.Records[0].MarshalJSON()
	}
	recs := s.Records
	if recs == nil {
		recs = []Record{}
	}
	return jsonAPI.Marshal(recs)
}

// UnmarshalJSON accepts either an object or an array of objects.
func (s *Source) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		return nil
	}
	v, err := decodeJSON(data)
	if err != nil {
		return err
	}
	src, err := sourceFromValue(v)
	if err != nil {
		return err
	}
	src.Format = FormatJSON
	*s = src
	return nil
}

// MarshalYAML renders the source the same way MarshalJSON does.
func (s Source) MarshalYAML() (interface{}, error) {
	if !s.Collection && len(s.Records) == 1 {
		return s.Records[0].yamlNode()
	}
	items := make([]any, len(s.Records))
	for i, rec := range s.Records {
		items[i] = rec
	}
	return valueNode(items)
}

var errNotRecords = errors.New("top-level value must be an object or an array of objects")

// sourceFromValue classifies a decoded document as singleton or collection.
func sourceFromValue(v any) (Source, error) {
	switch val := v.(type) {
	case Record:
		return SingleSource(val), nil
	case []any:
		recs := make([]Record, 0, len(val))
		for i, item := range val {
			rec, ok := item.(Record)
			if !ok {
				return Source{}, fmt.Errorf("%w: element %d is %s", errNotRecords, i, describeValue(item))
			}
			recs = append(recs, rec)
		}
		return CollectionSource(recs...), nil
	default:
		return Source{}, fmt.Errorf("%w: got %s", errNotRecords, describeValue(v))
	}
}
