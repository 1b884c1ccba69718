package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/ContentImport/internal/logging"
)

// FormatFromHint picks the decoder for a file name or extension.
// "csv" selects CSV, "yml" and "yaml" select YAML, everything else is JSON.
func FormatFromHint(hint string) Format {
	ext := strings.ToLower(strings.TrimSpace(hint))
	if e := filepath.Ext(ext); e != "" {
		ext = e
	}
	switch strings.TrimPrefix(ext, ".") {
	case "csv":
		return FormatCSV
	case "yml", "yaml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes raw file content into a Source. The format is selected by
// hint (a file name or extension) and never sniffed from the content.
//
// CSV input always yields a collection. Malformed CSV rows are skipped and
// reported in Source.Warnings; they never fail the parse.
func Parse(ctx context.Context, data []byte, hint string) (Source, error) {
	format := FormatFromHint(hint)

	data, err := decodeInput(data)
	if err != nil {
		return Source{}, &ParseError{Format: format, Err: fmt.Errorf("encoding error: %w", err)}
	}

	var src Source
	switch format {
	case FormatCSV:
		src, err = parseCSV(ctx, data)
	case FormatYAML:
		src, err = parseYAML(data)
	default:
		src, err = parseJSON(data)
	}
	if err != nil {
		return Source{}, &ParseError{Format: format, Err: err}
	}
	src.Format = format
	return src, nil
}

// =============================================================================
// CSV
// =============================================================================

func parseCSV(ctx context.Context, data []byte) (Source, error) {
	logger := logging.FromContext(ctx)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Source{}, errors.New("empty file: no header row")
	}
	if err != nil {
		return Source{}, fmt.Errorf("read header: %w", err)
	}

	var warnings []ParseWarning
	warn := func(line int, reason string) {
		warnings = append(warnings, ParseWarning{Line: line, Reason: reason})
		logger.Warn("csv row skipped", "line", line, "reason", reason)
	}

	// columns[i] is the field name for column i, or "" when the column is ignored.
	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		switch {
		case name == "":
			warn(1, fmt.Sprintf("column %d has no header name and is ignored", i+1))
		case seen[name]:
			warn(1, fmt.Sprintf("duplicate header %q in column %d is ignored", name, i+1))
		default:
			seen[name] = true
			columns[i] = name
		}
	}

	records := make([]Record, 0)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				warn(perr.StartLine, perr.Err.Error())
				continue
			}
			return Source{}, err
		}

		line, _ := reader.FieldPos(0)
		if len(row) != len(header) {
			warn(line, fmt.Sprintf("expected %d fields, got %d", len(header), len(row)))
			continue
		}

		var rec Record
		for i, value := range row {
			if columns[i] != "" {
				rec.Set(columns[i], value)
			}
		}
		records = append(records, rec)
	}

	if len(warnings) > 0 {
		logger.Info("csv parsed with warnings", "records", len(records), "warnings", len(warnings))
	}

	return Source{Records: records, Collection: true, Warnings: warnings}, nil
}

// =============================================================================
// JSON
// =============================================================================

func parseJSON(data []byte) (Source, error) {
	v, err := decodeJSON(data)
	if err != nil {
		return Source{}, err
	}
	return sourceFromValue(v)
}

// decodeJSON decodes one JSON document into Values, keeping object key order.
func decodeJSON(data []byte) (any, error) {
	// Unmarshal rejects syntax errors and trailing bytes; the iterator below
	// does not, so it only runs on validated input.
	var probe any
	if err := jsonAPI.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	iter := jsonAPI.BorrowIterator(data)
	defer jsonAPI.ReturnIterator(iter)

	v := readJSONValue(iter)
	if iter.Error != nil && !errors.Is(iter.Error, io.EOF) {
		return nil, iter.Error
	}
	return v, nil
}

func readJSONValue(iter *jsoniter.Iterator) any {
	switch iter.WhatIsNext() {
	case jsoniter.ObjectValue:
		var rec Record
		iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
			rec.Set(field, readJSONValue(it))
			return true
		})
		return rec
	case jsoniter.ArrayValue:
		items := make([]any, 0)
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			items = append(items, readJSONValue(it))
			return true
		})
		return items
	case jsoniter.StringValue:
		return iter.ReadString()
	case jsoniter.NumberValue:
		n := iter.ReadNumber()
		if i, err := n.Int64(); err == nil {
			return i
		}
		f, _ := n.Float64()
		return f
	case jsoniter.BoolValue:
		return iter.ReadBool()
	case jsoniter.NilValue:
		iter.ReadNil()
		return nil
	default:
		iter.Skip()
		return nil
	}
}

// =============================================================================
// YAML
// =============================================================================

func parseYAML(data []byte) (Source, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Source{}, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return Source{}, errors.New("empty document")
	}
	v, err := yamlValue(&doc)
	if err != nil {
		return Source{}, err
	}
	return sourceFromValue(v)
}

func yamlValue(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		return yamlValue(node.Content[0])
	case yaml.AliasNode:
		return yamlValue(node.Alias)
	case yaml.MappingNode:
		var rec Record
		if err := mergeYAMLMapping(&rec, node); err != nil {
			return nil, err
		}
		return rec, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			v, err := yamlValue(child)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case yaml.ScalarNode:
		return yamlScalar(node)
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node", node.Line)
	}
}

// mergeYAMLMapping copies the pairs of a mapping node into rec. Merge keys
// ("<<") contribute fields that the mapping does not set itself.
func mergeYAMLMapping(rec *Record, node *yaml.Node) error {
	var merges []*yaml.Node
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if key.Kind == yaml.ScalarNode && key.ShortTag() == "!!merge" {
			merges = append(merges, val)
			continue
		}
		v, err := yamlValue(val)
		if err != nil {
			return err
		}
		rec.Set(key.Value, v)
	}

	for _, m := range merges {
		if m.Kind == yaml.AliasNode {
			m = m.Alias
		}
		sources := []*yaml.Node{m}
		if m.Kind == yaml.SequenceNode {
			sources = m.Content
		}
		for _, src := range sources {
			if src.Kind == yaml.AliasNode {
				src = src.Alias
			}
			if src.Kind != yaml.MappingNode {
				return fmt.Errorf("line %d: merge value must be a mapping", src.Line)
			}
			var merged Record
			if err := mergeYAMLMapping(&merged, src); err != nil {
				return err
			}
			for _, k := range merged.keys {
				if !rec.Has(k) {
					rec.Set(k, merged.values[k])
				}
			}
		}
	}
	return nil
}

func yamlScalar(node *yaml.Node) (any, error) {
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, fmt.Errorf("line %d: %w", node.Line, err)
	}
	switch val := v.(type) {
	case int:
		return int64(val), nil
	case uint64:
		if val <= math.MaxInt64 {
			return int64(val), nil
		}
		return float64(val), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("line %d: %s is not a finite number", node.Line, node.Value)
		}
		return val, nil
	case []byte:
		return string(val), nil
	default:
		return v, nil
	}
}
