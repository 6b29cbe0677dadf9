package batch

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"bennypowers.dev/templatetag/internal/log"
	"github.com/bmatcuk/doublestar/v4"
)

// skipDirs are dependency and build directories never searched
var skipDirs = []string{"node_modules", "dist", "build"}

// shouldSkipDirectory reports hidden directories and the skipDirs; the root
// itself is always searched
func shouldSkipDirectory(d fs.DirEntry, path, root string) bool {
	if !d.IsDir() || path == root {
		return false
	}
	return strings.HasPrefix(d.Name(), ".") || slices.Contains(skipDirs, d.Name())
}

// matchesAnyPattern matches a slash-separated relative path against globs
func matchesAnyPattern(relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, relPath); err == nil && matched {
			return true
		}
	}
	return false
}

// Discover lists the files under root matching any include glob and no
// exclude glob, as sorted slash-separated paths relative to root
func Discover(root string, include, exclude []string) ([]string, error) {
	for _, pattern := range slices.Concat(include, exclude) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q", pattern)
		}
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Debug("Skipping %s: %v", path, err)
			return nil
		}
		if shouldSkipDirectory(d, path, root) {
			return filepath.SkipDir
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		// doublestar.Match expects forward slashes
		rel = filepath.ToSlash(rel)
		if matchesAnyPattern(rel, include) && !matchesAnyPattern(rel, exclude) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	slices.Sort(files)
	log.Debug("Found %d files under %s", len(files), root)
	return files, nil
}
