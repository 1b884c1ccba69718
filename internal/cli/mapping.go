package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/JonMunkholm/ContentImport/internal/core"
)

// fieldOverride is one --map flag: source field to target field.
// An empty target drops the field.
type fieldOverride struct {
	Source string
	Target string
}

// parseOverrides parses "source=target" pairs.
func parseOverrides(pairs []string) ([]fieldOverride, error) {
	out := make([]fieldOverride, 0, len(pairs))
	for _, pair := range pairs {
		src, dst, ok := strings.Cut(pair, "=")
		src = strings.TrimSpace(src)
		if !ok || src == "" {
			return nil, fmt.Errorf("invalid --map %q: want source=target", pair)
		}
		out = append(out, fieldOverride{Source: src, Target: strings.TrimSpace(dst)})
	}
	return out, nil
}

// buildMapping proposes the default mapping of src onto desc, then applies
// tpl (if any) and the overrides in that order.
func buildMapping(src core.Source, desc core.ModelDescriptor, tpl *core.MappingTemplate, overrides []fieldOverride) (*core.FieldMapping, error) {
	mapping := core.ProposeDefaultMapping(src, desc.Fields)
	if tpl != nil {
		tpl.Apply(mapping)
	}
	for _, o := range overrides {
		if err := mapping.Set(o.Source, o.Target); err != nil {
			return nil, err
		}
	}
	return mapping, nil
}

// readSource reads and parses a file, using its extension as the format hint.
func readSource(ctx context.Context, path string) (core.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Source{}, err
	}
	return core.Parse(ctx, data, path)
}
