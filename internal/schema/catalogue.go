// Package schema loads the catalogue of content models that records can be
// imported into and registers it with the core registry.
//
// The catalogue is a YAML document:
//
//	models:
//	  - uid: api::article.article
//	    kind: collectionType
//	    label: Articles
//	    group: Content
//	    fields: [title, slug, body]
//
// A default catalogue is compiled into the binary; MODELS_PATH replaces it.
package schema

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/ContentImport/internal/core"
)

//go:embed models.yaml
var defaultCatalogue []byte

// Catalogue is a set of model descriptors.
type Catalogue struct {
	Models []core.ModelDescriptor `yaml:"models"`
}

// Default returns the compiled-in catalogue.
func Default() (Catalogue, error) {
	return Parse(defaultCatalogue)
}

// Load reads a catalogue file. An empty path selects the default catalogue.
func Load(path string) (Catalogue, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalogue{}, fmt.Errorf("read model catalogue: %w", err)
	}
	cat, err := Parse(data)
	if err != nil {
		return Catalogue{}, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes and validates a catalogue document.
func Parse(data []byte) (Catalogue, error) {
	var cat Catalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return Catalogue{}, fmt.Errorf("parse model catalogue: %w", err)
	}
	for i := range cat.Models {
		m := &cat.Models[i]
		m.UID = strings.TrimSpace(m.UID)
		if m.Kind == "" {
			m.Kind = core.CollectionType
		}
	}
	if err := cat.Validate(); err != nil {
		return Catalogue{}, err
	}
	return cat, nil
}

// Validate reports every problem in the catalogue at once.
func (c Catalogue) Validate() error {
	var result *multierror.Error

	if len(c.Models) == 0 {
		result = multierror.Append(result, fmt.Errorf("catalogue defines no models"))
	}

	seen := make(map[string]bool, len(c.Models))
	for i, m := range c.Models {
		name := m.UID
		if name == "" {
			name = fmt.Sprintf("models[%d]", i)
			result = multierror.Append(result, fmt.Errorf("%s: uid is required", name))
		} else if seen[name] {
			result = multierror.Append(result, fmt.Errorf("%s: duplicate uid", name))
		}
		seen[name] = true

		if m.Kind != core.CollectionType && m.Kind != core.SingleType {
			result = multierror.Append(result, fmt.Errorf("%s: kind must be %s or %s, got %q",
				name, core.CollectionType, core.SingleType, m.Kind))
		}

		if len(m.Fields) == 0 {
			result = multierror.Append(result, fmt.Errorf("%s: at least one field is required", name))
		}
		fields := make(map[string]bool, len(m.Fields))
		for _, f := range m.Fields {
			switch {
			case strings.TrimSpace(f) == "":
				result = multierror.Append(result, fmt.Errorf("%s: blank field name", name))
			case fields[f]:
				result = multierror.Append(result, fmt.Errorf("%s: duplicate field %q", name, f))
			}
			fields[f] = true
		}
	}

	return result.ErrorOrNil()
}

// RegisterAll adds every model of the catalogue to the core registry.
// Models already registered under the same UID are left untouched.
func (c Catalogue) RegisterAll() int {
	added := 0
	for _, m := range c.Models {
		if _, exists := core.Get(m.UID); exists {
			continue
		}
		core.Register(m)
		added++
	}
	return added
}

// Register loads the catalogue at path (or the default one) and registers
// its models. It returns the number of models added.
func Register(path string) (int, error) {
	cat, err := Load(path)
	if err != nil {
		return 0, err
	}
	return cat.RegisterAll(), nil
}
