package batch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"bennypowers.dev/templatetag/internal/log"
	"bennypowers.dev/templatetag/transform/types"
)

// outputExtensions maps template-bearing extensions to their plain ones
var outputExtensions = map[string]string{
	".gjs": ".js",
	".gts": ".ts",
}

// OutputPath is the slash-separated path, relative to the output directory,
// that a transformed file is written to. Without an out dir the output
// lands beside the input, so inputs whose extension would not change are
// refused rather than overwritten.
func OutputPath(file string, hasOutDir bool) (string, error) {
	ext := path.Ext(file)
	plain, ok := outputExtensions[strings.ToLower(ext)]
	switch {
	case ok:
		return strings.TrimSuffix(file, ext) + plain, nil
	case hasOutDir:
		return file, nil
	}
	return "", fmt.Errorf("%w: writing %s beside its input would overwrite it; set an out dir", types.ErrInvalidOptions, file)
}

// WriteOutputs writes the output, and source map when there is one, of
// every successful transform task
func (r *Runner) WriteOutputs(tasks []Task[string, FileResult]) error {
	outDir := r.root
	if r.config.OutDir != "" {
		outDir = r.config.OutDir
		if !filepath.IsAbs(outDir) {
			outDir = filepath.Join(r.root, outDir)
		}
	}

	var errs []error
	for _, task := range tasks {
		if task.Err != nil {
			continue
		}
		if err := writeOutput(outDir, r.config.OutDir != "", task.Result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func writeOutput(outDir string, hasOutDir bool, result FileResult) error {
	rel, err := OutputPath(result.Path, hasOutDir)
	if err != nil {
		return err
	}
	dst := filepath.Join(outDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(dst, []byte(result.Output), 0o644); err != nil { //nolint:gosec // G306: build output
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	log.Debug("Wrote %s", dst)

	if result.Map == nil {
		return nil
	}
	data, err := result.Map.JSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst+".map", data, 0o644); err != nil { //nolint:gosec // G306: build output
		return fmt.Errorf("failed to write %s.map: %w", dst, err)
	}
	return nil
}

// reportEntry is one file of a JSON report
type reportEntry struct {
	File                  string                `json:"file"`
	Output                string                `json:"output,omitempty"`
	Replacements          []types.Replacement   `json:"replacements,omitempty"`
	TemplateCallSpecifier string                `json:"templateCallSpecifier,omitempty"`
	Matches               []types.TemplateMatch `json:"matches,omitempty"`
	Diagnostics           []string              `json:"diagnostics,omitempty"`
	Error                 string                `json:"error,omitempty"`
}

// WriteReport writes a JSON array with one entry per task, in task order
func WriteReport(w io.Writer, tasks []Task[string, FileResult]) error {
	entries := make([]reportEntry, 0, len(tasks))
	for _, task := range tasks {
		entry := reportEntry{File: task.Input}
		if task.Err != nil {
			entry.Error = task.Err.Error()
			entries = append(entries, entry)
			continue
		}
		result := task.Result
		entry.Output = result.Output
		entry.Matches = result.Matches
		if result.Lint != nil {
			entry.Replacements = result.Lint.Replacements
			entry.TemplateCallSpecifier = result.Lint.TemplateCallSpecifier
		}
		for _, d := range result.Diagnostics {
			entry.Diagnostics = append(entry.Diagnostics, d.Error())
		}
		entries = append(entries, entry)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(entries); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
