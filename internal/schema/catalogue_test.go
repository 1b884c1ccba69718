package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/ContentImport/internal/core"
)

func TestDefault(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)
	require.NotEmpty(t, cat.Models)

	kinds := make(map[core.ModelKind]int)
	for _, m := range cat.Models {
		kinds[m.Kind]++
		assert.NotEmpty(t, m.Fields, m.UID)
	}
	assert.Positive(t, kinds[core.CollectionType])
	assert.Positive(t, kinds[core.SingleType])
}

func TestParse_DefaultsKind(t *testing.T) {
	cat, err := Parse([]byte("models:\n  - uid: ' api::page.page '\n    fields: [title]\n"))
	require.NoError(t, err)
	require.Len(t, cat.Models, 1)
	assert.Equal(t, "api::page.page", cat.Models[0].UID)
	assert.Equal(t, core.CollectionType, cat.Models[0].Kind)
}

func TestParse_ReportsEveryProblem(t *testing.T) {
	data := []byte(`
models:
  - uid: api::a.a
    kind: document
    fields: [title, title]
  - uid: api::a.a
    fields: [name]
  - kind: singleType
`)
	_, err := Parse(data)
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, `kind must be collectionType or singleType, got "document"`)
	assert.Contains(t, msg, `duplicate field "title"`)
	assert.Contains(t, msg, "api::a.a: duplicate uid")
	assert.Contains(t, msg, "models[2]: uid is required")
	assert.Contains(t, msg, "models[2]: at least one field is required")
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse([]byte("models: []\n"))
	assert.ErrorContains(t, err, "catalogue defines no models")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models:\n  - uid: api::faq.faq\n    kind: singleType\n    fields: [items]\n"), 0o600))

	cat, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cat.Models, 1)
	assert.Equal(t, core.SingleType, cat.Models[0].Kind)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	core.Clear()
	t.Cleanup(core.Clear)

	n, err := Register("")
	require.NoError(t, err)
	assert.Equal(t, core.ModelCount(), n)

	again, err := Register("")
	require.NoError(t, err)
	assert.Zero(t, again)

	desc, err := core.Lookup("api::homepage.homepage")
	require.NoError(t, err)
	assert.Equal(t, core.SingleType, desc.Kind)
	assert.Contains(t, desc.Fields, "headline")
}
