// Package capture turns source-code locations into flow match steps. It
// reads the referenced line with a window of surrounding context and
// records enough git metadata to anchor the flow to a revision.
package capture

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/flowdeck/flowdeck/internal/flow"
)

// DefaultContextLines is the number of lines captured around the target.
const DefaultContextLines = 4

// Location identifies a single line in a file.
type Location struct {
	File string
	Line int
}

// ParseLocation parses a file:line reference such as "internal/db/db.go:42".
func ParseLocation(ref string) (Location, error) {
	idx := strings.LastIndex(ref, ":")
	if idx <= 0 || idx == len(ref)-1 {
		return Location{}, fmt.Errorf("capture: expected file:line, got %q", ref)
	}
	line, err := strconv.Atoi(ref[idx+1:])
	if err != nil || line < 1 {
		return Location{}, fmt.Errorf("capture: invalid line number in %q", ref)
	}
	return Location{File: ref[:idx], Line: line}, nil
}

// Snip reads the located line plus contextLines lines on each side and
// returns it as a grep match. The file name is stored relative to root
// when the file lives under it.
func Snip(root string, loc Location, contextLines int) (flow.GrepMatch, error) {
	if contextLines < 0 {
		contextLines = DefaultContextLines
	}

	path := loc.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return flow.GrepMatch{}, fmt.Errorf("capture: open %s: %w", loc.File, err)
	}
	defer f.Close()

	var target string
	var context []string
	found := false

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo < loc.Line-contextLines {
			continue
		}
		if lineNo > loc.Line+contextLines {
			break
		}
		text := scanner.Text()
		context = append(context, text)
		if lineNo == loc.Line {
			target = text
			found = true
		}
	}
	if err := scanner.Err(); err != nil {
		return flow.GrepMatch{}, fmt.Errorf("capture: read %s: %w", loc.File, err)
	}
	if !found {
		return flow.GrepMatch{}, fmt.Errorf("capture: %s has no line %d", loc.File, loc.Line)
	}

	name := loc.File
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		name = filepath.ToSlash(rel)
	}

	return flow.GrepMatch{
		FileName: name,
		Meta: flow.GrepMeta{
			ContextLines: context,
			Line:         target,
			LineNo:       loc.Line,
		},
	}, nil
}
