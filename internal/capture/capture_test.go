package capture

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestParseLocation(t *testing.T) {
	loc, err := ParseLocation("internal/db/db.go:42")
	if err != nil {
		t.Fatalf("ParseLocation: %v", err)
	}
	if loc.File != "internal/db/db.go" || loc.Line != 42 {
		t.Errorf("loc = %+v", loc)
	}

	// Windows-style paths keep their drive colon.
	loc, err = ParseLocation(`C:\src\main.go:7`)
	if err != nil {
		t.Fatalf("ParseLocation with drive letter: %v", err)
	}
	if loc.File != `C:\src\main.go` || loc.Line != 7 {
		t.Errorf("loc = %+v", loc)
	}

	for _, bad := range []string{"main.go", "main.go:", ":12", "main.go:zero", "main.go:0", "main.go:-3"} {
		if _, err := ParseLocation(bad); err == nil {
			t.Errorf("ParseLocation(%q) accepted", bad)
		}
	}
}

func TestSnipWindow(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "a\nb\nc\nd\ne\nf\ng\n")

	got, err := Snip(dir, Location{File: "main.go", Line: 4}, 2)
	if err != nil {
		t.Fatalf("Snip: %v", err)
	}
	if got.FileName != "main.go" {
		t.Errorf("file name = %q", got.FileName)
	}
	if got.Meta.Line != "d" || got.Meta.LineNo != 4 {
		t.Errorf("target = %q at %d", got.Meta.Line, got.Meta.LineNo)
	}
	want := []string{"b", "c", "d", "e", "f"}
	if len(got.Meta.ContextLines) != len(want) {
		t.Fatalf("context = %v", got.Meta.ContextLines)
	}
	for i, line := range want {
		if got.Meta.ContextLines[i] != line {
			t.Errorf("context[%d] = %q, want %q", i, got.Meta.ContextLines[i], line)
		}
	}
}

func TestSnipClampsAtFileEdges(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "short.go", "one\ntwo\nthree\n")

	got, err := Snip(dir, Location{File: "short.go", Line: 1}, 4)
	if err != nil {
		t.Fatalf("Snip at top: %v", err)
	}
	if len(got.Meta.ContextLines) != 3 {
		t.Errorf("context = %v, want the whole short file", got.Meta.ContextLines)
	}
}

func TestSnipMissingLine(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "short.go", "only line\n")

	if _, err := Snip(dir, Location{File: "short.go", Line: 99}, 2); err == nil {
		t.Fatal("expected error for line past end of file")
	}
}

func TestSnipRelativizesUnderRoot(t *testing.T) {
	dir := t.TempDir()
	abs := writeFile(t, dir, filepath.Join("internal", "db", "db.go"), "package db\n")

	got, err := Snip(dir, Location{File: abs, Line: 1}, 0)
	if err != nil {
		t.Fatalf("Snip: %v", err)
	}
	if got.FileName != "internal/db/db.go" {
		t.Errorf("file name = %q, want root-relative slash path", got.FileName)
	}
}

func TestScanFindsPatternWithContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n\nfunc Handler() {}\n")
	writeFile(t, dir, "b.go", "package b\n\nfunc helper() {}\n")

	got, err := Scan(ScanConfig{RootDir: dir, Pattern: "Handler", ContextLines: 1})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("matches = %d, want 1", len(got))
	}
	m := got[0]
	if m.FileName != "a.go" || m.Meta.LineNo != 3 {
		t.Errorf("match = %+v", m)
	}
	if len(m.Meta.ContextLines) < 2 {
		t.Errorf("context = %v", m.Meta.ContextLines)
	}
}

func TestScanIncludeExcludeGlobs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "needle\n")
	writeFile(t, dir, "main_test.go", "needle\n")
	writeFile(t, dir, "notes.txt", "needle\n")

	got, err := Scan(ScanConfig{
		RootDir: dir,
		Pattern: "needle",
		Include: []string{"*.go"},
		Exclude: []string{"*_test.go"},
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 1 || got[0].FileName != "main.go" {
		t.Fatalf("matches = %+v", got)
	}
}

func TestScanSkipsExcludedDirsAndBinaries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, filepath.Join("node_modules", "dep.js"), "needle\n")
	writeFile(t, dir, filepath.Join(".git", "config"), "needle\n")
	writeFile(t, dir, "blob.bin", "needle\x00binary\n")
	writeFile(t, dir, "src.go", "needle\n")

	got, err := Scan(ScanConfig{RootDir: dir, Pattern: "needle"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 1 || got[0].FileName != "src.go" {
		t.Fatalf("matches = %+v", got)
	}
}

func TestScanMaxMatches(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "many.txt", "hit\nhit\nhit\nhit\nhit\n")

	got, err := Scan(ScanConfig{RootDir: dir, Pattern: "hit", MaxMatches: 2})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("matches = %d, want the cap", len(got))
	}
}

func TestScanEmptyPatternRejected(t *testing.T) {
	if _, err := Scan(ScanConfig{RootDir: t.TempDir()}); err == nil {
		t.Fatal("expected error for empty pattern")
	}
}
