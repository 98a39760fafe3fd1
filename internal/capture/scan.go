package capture

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/flowdeck/flowdeck/internal/flow"
)

// defaultExcludes are directory names skipped during traversal.
var defaultExcludes = []string{
	".git",
	"node_modules",
	"vendor",
	"__pycache__",
	"dist",
	"build",
	".next",
	"target",
	".venv",
	".idea",
	".vscode",
}

const maxScanFileSize int64 = 1 << 20

// ScanConfig controls Scan.
type ScanConfig struct {
	RootDir      string
	Pattern      string   // substring to search for
	Include      []string // glob patterns, empty means all files
	Exclude      []string // glob patterns, empty means none
	ContextLines int
	MaxMatches   int // 0 = unlimited
}

// Scan walks the tree under RootDir and returns a grep match for every
// line containing Pattern. Binary and oversized files are skipped.
func Scan(cfg ScanConfig) ([]flow.GrepMatch, error) {
	if cfg.Pattern == "" {
		return nil, fmt.Errorf("capture: scan pattern is empty")
	}
	root, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("capture: resolve root: %w", err)
	}
	contextLines := cfg.ContextLines
	if contextLines < 0 {
		contextLines = DefaultContextLines
	}

	var matches []flow.GrepMatch

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			if shouldExcludeDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if !matchesInclude(relPath, cfg.Include) || matchesAny(relPath, cfg.Exclude) {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > maxScanFileSize {
			return nil
		}
		if isBinary(path) {
			return nil
		}

		found, err := grepFile(path, filepath.ToSlash(relPath), cfg.Pattern, contextLines)
		if err != nil {
			return nil
		}
		matches = append(matches, found...)

		if cfg.MaxMatches > 0 && len(matches) >= cfg.MaxMatches {
			matches = matches[:cfg.MaxMatches]
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("capture: traversal: %w", err)
	}
	return matches, nil
}

// grepFile returns one match per line containing pattern, each with its
// window of surrounding context.
func grepFile(path, relPath, pattern string, contextLines int) ([]flow.GrepMatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(data), "\n")

	var out []flow.GrepMatch
	for i, line := range lines {
		if !strings.Contains(line, pattern) {
			continue
		}
		start := i - contextLines
		if start < 0 {
			start = 0
		}
		end := i + contextLines + 1
		if end > len(lines) {
			end = len(lines)
		}
		context := make([]string, end-start)
		copy(context, lines[start:end])

		out = append(out, flow.GrepMatch{
			FileName: relPath,
			Meta: flow.GrepMeta{
				ContextLines: context,
				Line:         line,
				LineNo:       i + 1,
			},
		})
	}
	return out, nil
}

func shouldExcludeDir(name string) bool {
	for _, excl := range defaultExcludes {
		if strings.EqualFold(name, excl) {
			return true
		}
	}
	return false
}

// matchesInclude reports whether relPath matches any include pattern.
// An empty pattern list includes everything.
func matchesInclude(relPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	return matchesAny(relPath, patterns)
}

// matchesAny checks relPath against the given glob patterns, using
// doublestar for ** support. Patterns are also tried against the bare
// filename so "*.go" works without a leading **/.
func matchesAny(relPath string, patterns []string) bool {
	normalized := filepath.ToSlash(relPath)
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if matched, err := doublestar.PathMatch(pattern, normalized); err == nil && matched {
			return true
		}
		if matched, err := doublestar.PathMatch(pattern, filepath.Base(normalized)); err == nil && matched {
			return true
		}
	}
	return false
}

// isBinary checks the first 512 bytes for NUL bytes.
func isBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return true
	}
	for i := 0; i < n; i++ {
		if buf[i] == 0 {
			return true
		}
	}
	return false
}
