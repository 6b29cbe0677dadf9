// Package config loads template-tag settings from package.json, a YAML
// config file, the environment and .env files, in that order of precedence
// from lowest to highest. Command-line flags are applied on top by the CLI.
package config

import (
	"fmt"
	"runtime"
	"slices"

	"bennypowers.dev/templatetag/transform"
	"bennypowers.dev/templatetag/transform/types"
)

// Config is the resolved configuration of a run
type Config struct {
	// TemplateTag is the element name of block templates
	TemplateTag string
	// StaticImports lists the imports whose tagged literals are templates
	StaticImports []types.StaticImportConfig
	// Explicit captures template locals in a scope closure
	Explicit bool
	// SourceMaps applies to full-mode output
	SourceMaps types.SourceMapMode
	// GrammarPlugins are extra host grammar plugins, e.g. "typescript"
	GrammarPlugins []string
	// CompilerImportPath and CompilerImportName identify the compiler function
	CompilerImportPath string
	CompilerImportName string

	// Include and Exclude are doublestar globs relative to the root
	Include []string
	Exclude []string
	// OutDir receives transformed files; empty writes them beside their inputs
	OutDir string
	// Workers bounds the number of files transformed at once
	Workers int
	// CacheSize is the number of transform results kept in memory
	CacheSize int
	LogLevel  string
}

// DefaultInclude are the globs searched when none are configured
var DefaultInclude = []string{
	"**/*.gjs",
	"**/*.gts",
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() Config {
	return Config{
		TemplateTag:        "template",
		Explicit:           true,
		SourceMaps:         types.SourceMapsNone,
		CompilerImportPath: "@ember/template-compiler",
		CompilerImportName: "template",
		Include:            slices.Clone(DefaultInclude),
		Workers:            runtime.NumCPU(),
		CacheSize:          256,
		LogLevel:           "info",
	}
}

// Validate reports settings no run could use
func (c Config) Validate() error {
	switch {
	case c.TemplateTag == "":
		return fmt.Errorf("%w: template tag must not be empty", types.ErrInvalidOptions)
	case !c.SourceMaps.Valid():
		return fmt.Errorf("%w: unknown source map mode %q", types.ErrInvalidOptions, c.SourceMaps)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be at least 1, got %d", types.ErrInvalidOptions, c.Workers)
	case c.CacheSize < 0:
		return fmt.Errorf("%w: cache size must not be negative, got %d", types.ErrInvalidOptions, c.CacheSize)
	case len(c.Include) == 0:
		return fmt.Errorf("%w: no include globs", types.ErrInvalidOptions)
	}
	return nil
}

// TransformOptions builds the transform options for one file
func (c Config) TransformOptions(input, relativePath string) transform.Options {
	return transform.Options{
		Input:               input,
		RelativePath:        relativePath,
		TemplateTag:         c.TemplateTag,
		StaticImportConfigs: c.StaticImports,
		ExplicitMode:        transform.Bool(c.Explicit),
		IncludeSourceMaps:   c.SourceMaps,
		ExtraGrammarPlugins: c.GrammarPlugins,
		CompilerImportPath:  c.CompilerImportPath,
		CompilerImportName:  c.CompilerImportName,
	}
}
