package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ResolveInputs expands Inputs.Files under rootPath, drops Exclude matches and
// returns the dump files in sorted order
func (c *Config) ResolveInputs(rootPath string) ([]string, error) {
	fileSet := make(map[string]bool)
	for _, pattern := range c.Inputs.Files {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(rootPath, pattern)
		}

		matches, err := expandGlob(pattern)
		if err != nil {
			// Silently skip invalid patterns
			continue
		}

		for _, match := range matches {
			if isDumpFile(match) {
				fileSet[filepath.Clean(match)] = true
			}
		}
	}

	for _, pattern := range c.Inputs.Exclude {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(rootPath, pattern)
		}

		matches, err := expandGlob(pattern)
		if err != nil {
			continue
		}

		for _, match := range matches {
			delete(fileSet, filepath.Clean(match))
		}
	}

	result := make([]string, 0, len(fileSet))
	for f := range fileSet {
		result = append(result, f)
	}
	sort.Strings(result)
	return result, nil
}

func isDumpFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".vcd"
}

// OutputPathFor returns where batch conversion writes the document for input
func (c *Config) OutputPathFor(input, rootPath string) string {
	ext := "." + c.Output.Format
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ext
	if c.Output.Dir == "" {
		return filepath.Join(filepath.Dir(input), base)
	}
	dir := c.Output.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(rootPath, dir)
	}
	// Keep the input's position relative to rootPath so equal names do not clash
	if rel, err := filepath.Rel(rootPath, filepath.Dir(input)); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.Join(dir, rel, base)
	}
	return filepath.Join(dir, base)
}

// expandGlob expands a glob pattern, handling ** for recursive matching
func expandGlob(pattern string) ([]string, error) {
	if strings.Contains(pattern, "**") {
		return expandDoubleStarGlob(pattern)
	}

	return filepath.Glob(pattern)
}

// expandDoubleStarGlob handles ** patterns by walking the directory tree
func expandDoubleStarGlob(pattern string) ([]string, error) {
	var results []string

	parts := strings.SplitN(pattern, "**", 2)
	if len(parts) != 2 {
		return filepath.Glob(pattern)
	}

	baseDir := filepath.Clean(parts[0])
	if baseDir == "" {
		baseDir = "."
	}
	suffix := strings.TrimPrefix(parts[1], string(filepath.Separator))

	err := filepath.Walk(baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}

		if info.IsDir() {
			return nil
		}

		if suffix == "" {
			results = append(results, path)
			return nil
		}

		relPath, err := filepath.Rel(baseDir, path)
		if err != nil {
			return nil
		}

		if matchSuffix(relPath, suffix) {
			results = append(results, path)
		}

		return nil
	})

	return results, err
}

// matchSuffix checks if a path matches a suffix pattern (after **)
func matchSuffix(path, pattern string) bool {
	// If pattern has no directory component, match against filename
	if !strings.Contains(pattern, string(filepath.Separator)) {
		matched, _ := filepath.Match(pattern, filepath.Base(path))
		return matched
	}

	matched, _ := filepath.Match(pattern, path)
	if matched {
		return true
	}

	// Also try matching just the trailing components
	parts := strings.Split(path, string(filepath.Separator))
	depth := strings.Count(pattern, string(filepath.Separator)) + 1
	if len(parts) > depth {
		tail := filepath.Join(parts[len(parts)-depth:]...)
		matched, _ = filepath.Match(pattern, tail)
		return matched
	}

	return false
}
