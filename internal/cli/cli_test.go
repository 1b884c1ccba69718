package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/ContentImport/internal/core"
)

var articleModel = core.ModelDescriptor{
	UID:    "api::article.article",
	Kind:   core.CollectionType,
	Fields: []string{"title", "slug", "body"},
}

func TestParseOverrides(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    []fieldOverride
		wantErr bool
	}{
		{"empty", nil, []fieldOverride{}, false},
		{"rename", []string{"Headline=title"}, []fieldOverride{{"Headline", "title"}}, false},
		{"drop", []string{"Notes="}, []fieldOverride{{"Notes", ""}}, false},
		{"trims", []string{" Headline = title "}, []fieldOverride{{"Headline", "title"}}, false},
		{"target with equals", []string{"a=b=c"}, []fieldOverride{{"a", "b=c"}}, false},
		{"missing separator", []string{"Headline"}, nil, true},
		{"missing source", []string{"=title"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOverrides(tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildMapping(t *testing.T) {
	src := core.CollectionSource(core.NewRecord("Headline", "Hi", "slug", "hi", "body", "text"))

	tplMapping := core.ProposeDefaultMapping(core.SingleSource(core.NewRecord("Headline", "", "Notes", "")), articleModel.Fields)
	require.NoError(t, tplMapping.Set("Headline", "title"))
	tpl := &core.MappingTemplate{Name: "legacy", Mapping: tplMapping}

	m, err := buildMapping(src, articleModel, tpl, []fieldOverride{{"body", ""}})
	require.NoError(t, err)

	assert.Equal(t, []string{"Headline", "slug", "body"}, m.Fields())
	for field, want := range map[string]string{"Headline": "title", "slug": "slug", "body": ""} {
		got, ok := m.Target(field)
		assert.True(t, ok, field)
		assert.Equal(t, want, got, field)
	}
}

func TestBuildMapping_Errors(t *testing.T) {
	src := core.CollectionSource(core.NewRecord("Headline", "Hi"))

	_, err := buildMapping(src, articleModel, nil, []fieldOverride{{"Missing", "title"}})
	assert.ErrorIs(t, err, core.ErrUnknownSourceField)

	_, err = buildMapping(src, articleModel, nil, []fieldOverride{{"Headline", "content"}})
	assert.ErrorIs(t, err, core.ErrUnknownTargetField)
}

func TestExportFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    core.Format
		wantErr bool
	}{
		{"json", core.FormatJSON, false},
		{"YAML", core.FormatYAML, false},
		{"yml", core.FormatYAML, false},
		{" csv ", core.FormatCSV, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := exportFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MODELS_PATH", "")
	core.Clear()
	t.Cleanup(core.Clear)

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestModelsCommand(t *testing.T) {
	out, err := runCmd(t, "models")
	require.NoError(t, err)

	assert.Contains(t, out, "GROUP")
	assert.Contains(t, out, "api::article.article")
	assert.Contains(t, out, "api::homepage.homepage")
	assert.Contains(t, out, "singleType")
}

func TestModelsCommand_Count(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("LOG_FILE", "")
	t.Setenv("AMQP_URL", "")

	out, err := runCmd(t, "models", "--count")
	require.NoError(t, err)

	assert.Contains(t, out, "ENTRIES")
	assert.Regexp(t, `api::article\.article\s+collectionType\s+0\s+`, out)
	assert.Regexp(t, `api::homepage\.homepage\s+singleType\s+0\s+`, out)
}

func TestParseCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.csv")
	require.NoError(t, os.WriteFile(path, []byte("title,Headline\nHello,World\nbroken\n"), 0o600))

	out, err := runCmd(t, "parse", path, "--model", "api::article.article")
	require.NoError(t, err)

	assert.Contains(t, out, "format:   csv\n")
	assert.Contains(t, out, "shape:    collection\n")
	assert.Contains(t, out, "records:  1\n")
	assert.Contains(t, out, "fields:   title, Headline\n")
	assert.Contains(t, out, "warning:  line 3:")
	assert.Contains(t, out, "  title -> title\n")
	assert.Contains(t, out, "  Headline -> (skipped)\n")
}

func TestParseCommand_SingleType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "home.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"headline":"Hi"}`), 0o600))

	out, err := runCmd(t, "parse", path, "--model", "api::homepage.homepage")
	require.NoError(t, err)

	assert.Contains(t, out, "shape:    single object\n")
	assert.Contains(t, out, "is a single type")
}

func TestParseCommand_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a":`), 0o600))

	_, err := runCmd(t, "parse", path)
	var parseErr *core.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestDeleteAllRequiresConfirmation(t *testing.T) {
	_, err := runCmd(t, "delete-all", "--model", "api::article.article")
	assert.EqualError(t, err, "refusing to delete without --yes")
}

func TestImportRejectsConflictingFlags(t *testing.T) {
	_, err := runCmd(t, "import", "posts.csv", "--model", "api::article.article", "--no-mapping", "--map", "a=b")
	assert.EqualError(t, err, "--no-mapping cannot be combined with --template or --map")
}
