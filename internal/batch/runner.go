// Package batch transforms many files concurrently: it discovers them with
// globs, runs them through a worker pool, caches results and writes outputs.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"bennypowers.dev/templatetag/internal/config"
	"bennypowers.dev/templatetag/internal/log"
	"bennypowers.dev/templatetag/transform"
	"bennypowers.dev/templatetag/transform/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies the spans emitted by the runner
const TracerName = "bennypowers.dev/templatetag/batch"

// Mode selects what a run does with each file
type Mode int

const (
	// ModeTransform fully transforms each file
	ModeTransform Mode = iota
	// ModeLint patches each file in place and records the patches
	ModeLint
	// ModeMatches lists each file's templates
	ModeMatches
)

func (m Mode) String() string {
	switch m {
	case ModeLint:
		return "lint"
	case ModeMatches:
		return "matches"
	default:
		return "transform"
	}
}

// FileResult is the outcome of one file
type FileResult struct {
	// Path is relative to the runner's root, slash-separated
	Path string
	// Output is the transformed source, in transform and lint modes
	Output string
	// Map is set in transform mode when source maps are "both"
	Map *transform.SourceMap
	// Lint is set in lint mode
	Lint *transform.LintResult
	// Matches is set in matches mode
	Matches     []types.TemplateMatch
	Diagnostics []*types.HostParseError
	// Cached reports a result served from the cache
	Cached bool
}

// Runner processes files under one root with one configuration
type Runner struct {
	root   string
	config config.Config
	cache  *Cache
	tracer trace.Tracer
}

// Option customizes a Runner
type Option func(*Runner)

// WithTracer replaces the global tracer
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) {
		r.tracer = tracer
	}
}

// WithCache shares a cache between runners
func WithCache(cache *Cache) Option {
	return func(r *Runner) {
		r.cache = cache
	}
}

// NewRunner creates a runner for the project at root
func NewRunner(root string, cfg config.Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{
		root:   root,
		config: cfg,
		tracer: otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		cache, err := NewCache(cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create cache: %w", err)
		}
		r.cache = cache
	}
	return r, nil
}

// Discover lists the configured files under the root
func (r *Runner) Discover() ([]string, error) {
	return Discover(r.root, r.config.Include, r.config.Exclude)
}

// Run processes files, given relative to the root, in mode. The tasks come
// back in input order; a failed file does not stop the others.
func (r *Runner) Run(ctx context.Context, mode Mode, files []string) []Task[string, FileResult] {
	pool := NewPool(r.config.Workers, func(ctx context.Context, path string) (FileResult, error) {
		return r.processFile(ctx, mode, path)
	})
	tasks := pool.Execute(ctx, files)

	failed := 0
	for _, task := range tasks {
		if task.Err != nil {
			failed++
		}
	}
	log.Info("Processed %d files (%d failed)", len(tasks), failed)
	return tasks
}

func (r *Runner) processFile(ctx context.Context, mode Mode, path string) (result FileResult, err error) {
	_, span := r.tracer.Start(ctx, "templatetag."+mode.String(), trace.WithAttributes(
		attribute.String("templatetag.file", path),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	content, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(path))) //nolint:gosec // G304: discovered project file
	if err != nil {
		return FileResult{Path: path}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	opts := r.config.TransformOptions(string(content), path)
	key := CacheKey(mode, path, opts.Input, r.config)
	if cached, ok := r.cache.Get(key); ok {
		span.SetAttributes(attribute.Bool("templatetag.cached", true))
		cached.Cached = true
		return cached, nil
	}

	result, err = process(mode, opts)
	if err != nil {
		return FileResult{Path: path}, err
	}
	result.Path = path
	span.SetAttributes(
		attribute.Bool("templatetag.cached", false),
		attribute.Int("templatetag.diagnostics", len(result.Diagnostics)),
	)
	r.cache.Add(key, result)
	return result, nil
}

func process(mode Mode, opts transform.Options) (FileResult, error) {
	switch mode {
	case ModeLint:
		lint, err := transform.TransformForLint(opts)
		if err != nil {
			return FileResult{}, err
		}
		return FileResult{Output: lint.Output, Lint: lint, Diagnostics: lint.Diagnostics}, nil
	case ModeMatches:
		matches, err := transform.ParseTemplates(opts.Input, opts.RelativePath, opts)
		if err != nil {
			return FileResult{}, err
		}
		return FileResult{Matches: matches}, nil
	default:
		full, err := transform.Transform(opts)
		if err != nil {
			return FileResult{}, err
		}
		return FileResult{Output: full.Output, Map: full.Map, Diagnostics: full.Diagnostics}, nil
	}
}

// Errors joins the errors of failed tasks, each naming its file
func Errors(tasks []Task[string, FileResult]) error {
	var errs []error
	for _, task := range tasks {
		if task.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", task.Input, task.Err))
		}
	}
	return errors.Join(errs...)
}
