package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EncodeSource renders src in format. JSON and YAML keep the singleton or
// collection shape. CSV writes a header made of every field name in
// first-seen order; nested values are JSON-encoded into their cell.
func EncodeSource(src Source, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return src.MarshalJSON()
	case FormatYAML:
		return yaml.Marshal(src)
	case FormatCSV:
		return encodeCSV(src.Records)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// Export returns every entry of a model encoded in format. Entries of a
// single-type model are written as one object.
func (s *Service) Export(ctx context.Context, uid string, format Format) ([]byte, error) {
	desc, err := Lookup(uid)
	if err != nil {
		return nil, err
	}

	entries, err := s.backend.FindAll(ctx, desc.UID)
	if err != nil {
		return nil, &PersistenceError{Op: "find", Model: desc.UID, Err: err}
	}

	records := make([]Record, len(entries))
	for i, e := range entries {
		records[i] = e.Data
	}

	src := CollectionSource(records...)
	if desc.Kind == SingleType && len(records) == 1 {
		src = SingleSource(records[0])
	}
	return EncodeSource(src, format)
}

func encodeCSV(records []Record) ([]byte, error) {
	var header []string
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, k := range rec.keys {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}

	row := make([]string, len(header))
	for _, rec := range records {
		for i, k := range header {
			cell, err := csvCell(rec.values[k])
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			row[i] = cell
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

func csvCell(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		b, err := jsonAPI.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
