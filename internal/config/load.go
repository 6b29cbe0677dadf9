package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bennypowers.dev/templatetag/internal/log"
	"bennypowers.dev/templatetag/transform/types"
	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// PackageJSONKey is the package.json field holding configuration
const PackageJSONKey = "templateTag"

// EnvPrefix prefixes every configuration environment variable
const EnvPrefix = "TEMPLATE_TAG_"

// ConfigFileNames are searched in the root when no config file is given
var ConfigFileNames = []string{
	".template-tag.yaml",
	".template-tag.yml",
}

// fileConfig is one configuration layer; unset fields leave lower layers alone
type fileConfig struct {
	TemplateTag        *string                    `json:"tag" yaml:"tag"`
	StaticImports      []types.StaticImportConfig `json:"staticImports" yaml:"staticImports"`
	Explicit           *bool                      `json:"explicit" yaml:"explicit"`
	SourceMaps         *types.SourceMapMode       `json:"sourceMaps" yaml:"sourceMaps"`
	GrammarPlugins     []string                   `json:"grammarPlugins" yaml:"grammarPlugins"`
	CompilerImportPath *string                    `json:"compilerImportPath" yaml:"compilerImportPath"`
	CompilerImportName *string                    `json:"compilerImportName" yaml:"compilerImportName"`
	Include            []string                   `json:"include" yaml:"include"`
	Exclude            []string                   `json:"exclude" yaml:"exclude"`
	OutDir             *string                    `json:"outDir" yaml:"outDir"`
	Workers            *int                       `json:"workers" yaml:"workers"`
	CacheSize          *int                       `json:"cacheSize" yaml:"cacheSize"`
	LogLevel           *string                    `json:"logLevel" yaml:"logLevel"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (f *fileConfig) apply(c *Config) {
	if f == nil {
		return
	}
	set(&c.TemplateTag, f.TemplateTag)
	set(&c.Explicit, f.Explicit)
	set(&c.SourceMaps, f.SourceMaps)
	set(&c.CompilerImportPath, f.CompilerImportPath)
	set(&c.CompilerImportName, f.CompilerImportName)
	set(&c.OutDir, f.OutDir)
	set(&c.Workers, f.Workers)
	set(&c.CacheSize, f.CacheSize)
	set(&c.LogLevel, f.LogLevel)
	if f.StaticImports != nil {
		c.StaticImports = f.StaticImports
	}
	if f.GrammarPlugins != nil {
		c.GrammarPlugins = f.GrammarPlugins
	}
	if f.Include != nil {
		c.Include = f.Include
	}
	if f.Exclude != nil {
		c.Exclude = f.Exclude
	}
}

// Load resolves the configuration for the project at root. configFile, when
// set, names a YAML file that must exist; otherwise the ConfigFileNames are
// tried in root.
func Load(root, configFile string) (Config, error) {
	cfg := DefaultConfig()

	pkg, err := readPackageJSON(root)
	if err != nil {
		return cfg, err
	}
	pkg.apply(&cfg)

	file, err := readConfigFile(root, configFile)
	if err != nil {
		return cfg, err
	}
	file.apply(&cfg)

	env, err := readEnv(root)
	if err != nil {
		return cfg, err
	}
	if err := applyEnv(env, &cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// readPackageJSON reads the templateTag field of root/package.json. A missing
// file or field is not an error.
func readPackageJSON(root string) (*fileConfig, error) {
	path := filepath.Join(root, "package.json")
	data, err := os.ReadFile(path) //nolint:gosec // G304: project package.json
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read package.json: %w", err)
	}

	// package.json in the wild sometimes carries comments
	data = jsonc.ToJSON(data)

	var pkg struct {
		TemplateTag *fileConfig `json:"templateTag"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse package.json: %w", err)
	}
	if pkg.TemplateTag != nil {
		log.Debug("Using %s field of %s", PackageJSONKey, path)
	}
	return pkg.TemplateTag, nil
}

func readConfigFile(root, configFile string) (*fileConfig, error) {
	if configFile != "" {
		return readYAML(configFile)
	}
	for _, name := range ConfigFileNames {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err == nil {
			return readYAML(path)
		}
	}
	return nil, nil
}

func readYAML(path string) (*fileConfig, error) {
	f, err := os.Open(path) //nolint:gosec // G304: user-selected config file
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var cfg fileConfig
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	log.Debug("Using config file %s", path)
	return &cfg, nil
}

// readEnv collects TEMPLATE_TAG_ variables from root/.env and the process
// environment; the process environment wins
func readEnv(root string) (map[string]string, error) {
	env := make(map[string]string)

	dotenv := filepath.Join(root, ".env")
	if _, err := os.Stat(dotenv); err == nil {
		values, err := godotenv.Read(dotenv)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", dotenv, err)
		}
		maps.Copy(env, values)
	}

	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			env[key] = value
		}
	}

	maps.DeleteFunc(env, func(key, _ string) bool {
		return !strings.HasPrefix(key, EnvPrefix)
	})
	return env, nil
}

func applyEnv(env map[string]string, c *Config) error {
	for key, value := range env {
		name := strings.TrimPrefix(key, EnvPrefix)
		switch name {
		case "TAG":
			c.TemplateTag = value
		case "EXPLICIT":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return envError(key, err)
			}
			c.Explicit = b
		case "SOURCE_MAPS":
			c.SourceMaps = types.SourceMapMode(value)
		case "GRAMMAR_PLUGINS":
			c.GrammarPlugins = splitList(value)
		case "STATIC_IMPORTS":
			imports, err := parseStaticImports(value)
			if err != nil {
				return envError(key, err)
			}
			c.StaticImports = imports
		case "COMPILER_IMPORT_PATH":
			c.CompilerImportPath = value
		case "COMPILER_IMPORT_NAME":
			c.CompilerImportName = value
		case "INCLUDE":
			c.Include = splitList(value)
		case "EXCLUDE":
			c.Exclude = splitList(value)
		case "OUT_DIR":
			c.OutDir = value
		case "WORKERS":
			n, err := strconv.Atoi(value)
			if err != nil {
				return envError(key, err)
			}
			c.Workers = n
		case "CACHE_SIZE":
			n, err := strconv.Atoi(value)
			if err != nil {
				return envError(key, err)
			}
			c.CacheSize = n
		case "LOG_LEVEL":
			c.LogLevel = value
		default:
			log.Warn("Ignoring unknown environment variable %s", key)
		}
	}
	return nil
}

func envError(key string, err error) error {
	return fmt.Errorf("%w: %s: %w", types.ErrInvalidOptions, key, err)
}

func splitList(value string) []string {
	var out []string
	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseStaticImports reads "path:identifier" pairs, e.g.
// "ember-cli-htmlbars:hbs,@ember/template-compilation:precompileTemplate"
func parseStaticImports(value string) ([]types.StaticImportConfig, error) {
	var out []types.StaticImportConfig
	for _, item := range splitList(value) {
		i := strings.LastIndex(item, ":")
		if i <= 0 || i == len(item)-1 {
			return nil, fmt.Errorf("expected path:identifier, got %q", item)
		}
		out = append(out, types.StaticImportConfig{ImportPath: item[:i], ImportIdentifier: item[i+1:]})
	}
	return out, nil
}
