package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"bennypowers.dev/templatetag/internal/config"
	"bennypowers.dev/templatetag/transform/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, "template", cfg.TemplateTag)
	assert.True(t, cfg.Explicit)
	assert.Equal(t, types.SourceMapsNone, cfg.SourceMaps)
	assert.Equal(t, config.DefaultInclude, cfg.Include)
	assert.Positive(t, cfg.Workers)
	require.NoError(t, cfg.Validate())
}

func TestLoadEmptyRoot(t *testing.T) {
	cfg, err := config.Load(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestLoadPackageJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{
  // comments are tolerated
  "name": "my-app",
  "templateTag": {
    "tag": "hbs",
    "explicit": false,
    "staticImports": [{ "importPath": "ember-cli-htmlbars", "importIdentifier": "hbs" }],
  }
}`)

	cfg, err := config.Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "hbs", cfg.TemplateTag)
	assert.False(t, cfg.Explicit)
	assert.Equal(t, []types.StaticImportConfig{{ImportPath: "ember-cli-htmlbars", ImportIdentifier: "hbs"}}, cfg.StaticImports)
	assert.Equal(t, config.DefaultInclude, cfg.Include, "unset fields keep their defaults")
}

func TestLoadPackageJSONWithoutField(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"name": "my-app"}`)

	cfg, err := config.Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"templateTag": {"tag": "hbs", "workers": 2, "outDir": "pkg"}}`)
	writeFile(t, dir, ".template-tag.yaml", "workers: 3\nsourceMaps: inline\ninclude:\n  - src/**/*.gjs\n")
	writeFile(t, dir, ".env", "TEMPLATE_TAG_WORKERS=4\nTEMPLATE_TAG_OUT_DIR=dotenv\n")
	t.Setenv("TEMPLATE_TAG_OUT_DIR", "env")

	cfg, err := config.Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "hbs", cfg.TemplateTag, "package.json")
	assert.Equal(t, types.SourceMapsInline, cfg.SourceMaps, "yaml")
	assert.Equal(t, []string{"src/**/*.gjs"}, cfg.Include, "yaml")
	assert.Equal(t, 4, cfg.Workers, ".env beats yaml")
	assert.Equal(t, "env", cfg.OutDir, "process environment beats .env")
}

func TestLoadExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".template-tag.yaml", "tag: ignored\n")
	path := writeFile(t, dir, "custom.yaml", "tag: chosen\ncompilerImportPath: my-compiler\n")

	cfg, err := config.Load(dir, path)
	require.NoError(t, err)
	assert.Equal(t, "chosen", cfg.TemplateTag)
	assert.Equal(t, "my-compiler", cfg.CompilerImportPath)

	_, err = config.Load(dir, filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("TEMPLATE_TAG_STATIC_IMPORTS", "ember-cli-htmlbars:hbs, @ember/template-compilation:precompileTemplate")
	t.Setenv("TEMPLATE_TAG_GRAMMAR_PLUGINS", "typescript,jsx")
	t.Setenv("TEMPLATE_TAG_EXPLICIT", "false")

	cfg, err := config.Load(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, []types.StaticImportConfig{
		{ImportPath: "ember-cli-htmlbars", ImportIdentifier: "hbs"},
		{ImportPath: "@ember/template-compilation", ImportIdentifier: "precompileTemplate"},
	}, cfg.StaticImports)
	assert.Equal(t, []string{"typescript", "jsx"}, cfg.GrammarPlugins)
	assert.False(t, cfg.Explicit)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		env   map[string]string
	}{
		{
			name:  "malformed package.json",
			files: map[string]string{"package.json": `{"templateTag": `},
		},
		{
			name:  "unknown yaml field",
			files: map[string]string{".template-tag.yaml": "tags: hbs\n"},
		},
		{
			name: "bad worker count",
			env:  map[string]string{"TEMPLATE_TAG_WORKERS": "many"},
		},
		{
			name: "zero workers",
			env:  map[string]string{"TEMPLATE_TAG_WORKERS": "0"},
		},
		{
			name: "bad static import",
			env:  map[string]string{"TEMPLATE_TAG_STATIC_IMPORTS": "no-identifier"},
		},
		{
			name: "unknown source map mode",
			env:  map[string]string{"TEMPLATE_TAG_SOURCE_MAPS": "external"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, dir, name, content)
			}
			for key, value := range tt.env {
				t.Setenv(key, value)
			}
			_, err := config.Load(dir, "")
			require.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TemplateTag = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidOptions))
}

func TestTransformOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Explicit = false
	cfg.TemplateTag = "hbs"
	cfg.SourceMaps = types.SourceMapsBoth

	opts := cfg.TransformOptions("src", "a.gjs")
	assert.Equal(t, "src", opts.Input)
	assert.Equal(t, "a.gjs", opts.RelativePath)
	assert.Equal(t, "hbs", opts.TemplateTag)
	assert.False(t, opts.Explicit())
	assert.Equal(t, types.SourceMapsBoth, opts.IncludeSourceMaps)
	assert.Equal(t, "@ember/template-compiler", opts.CompilerImportPath)
}
