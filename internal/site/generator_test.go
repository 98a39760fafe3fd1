package site

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flowdeck/flowdeck/internal/flow"
)

func sampleAggregate(id, name string, updated time.Time) flow.Aggregate {
	return flow.Aggregate{
		Flow: &flow.Flow{ID: id, Name: name, Description: "about " + name, UpdatedAt: updated},
		Matches: []flow.Match{
			{
				ContentKind: flow.KindNote,
				Step:        &flow.StepContent{Title: "Intro", Body: "The " + name + " walkthrough."},
			},
		},
	}
}

func TestGenerateWritesSiteFiles(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(dir, "Test Project")

	day := time.Date(2026, time.March, 11, 10, 0, 0, 0, time.UTC)
	written, err := g.Generate([]flow.Aggregate{
		sampleAggregate("f1", "First flow", day),
		sampleAggregate("f2", "Second flow", day.AddDate(0, 0, -1)),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if written != 2 {
		t.Fatalf("written = %d, want 2", written)
	}

	for _, name := range []string{"index.html", "style.css", "search-index.json", filepath.Join("flows", "f1.html"), filepath.Join("flows", "f2.html")} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	page, _ := os.ReadFile(filepath.Join(dir, "flows", "f1.html"))
	if !strings.Contains(string(page), "First flow") {
		t.Error("flow page missing its title")
	}
}

func TestGenerateIndexGroupsByDay(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(dir, "Grouped")

	day := time.Date(2026, time.March, 11, 9, 0, 0, 0, time.UTC)
	_, err := g.Generate([]flow.Aggregate{
		sampleAggregate("old", "Older flow", day.AddDate(0, 0, -2)),
		sampleAggregate("new", "Newer flow", day),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	index, _ := os.ReadFile(filepath.Join(dir, "index.html"))
	html := string(index)
	for _, want := range []string{"March 11, 2026", "March 9, 2026", "Newer flow", "flows/new.html"} {
		if !strings.Contains(html, want) {
			t.Errorf("index missing %q", want)
		}
	}
	// Newest group first.
	if strings.Index(html, "March 11, 2026") > strings.Index(html, "March 9, 2026") {
		t.Error("date groups not newest-first")
	}
}

func TestGenerateSkipsUnsavedFlows(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(dir, "Skips")

	written, err := g.Generate([]flow.Aggregate{
		{Flow: &flow.Flow{Name: "no id yet"}},
		{Flow: nil},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if written != 0 {
		t.Fatalf("written = %d, want 0", written)
	}
}

func TestSearchIndexContent(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(dir, "Search")

	if _, err := g.Generate([]flow.Aggregate{sampleAggregate("f1", "Indexed", time.Now())}); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "search-index.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var entries []SearchEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	e := entries[0]
	if e.Path != "flows/f1.html" || e.Title != "Indexed" {
		t.Errorf("entry = %+v", e)
	}
	if !strings.Contains(e.Content, "walkthrough") {
		t.Errorf("content = %q, note text missing", e.Content)
	}
}

func TestWriteSearchIndexEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search-index.json")
	if err := WriteSearchIndex(nil, path); err != nil {
		t.Fatalf("WriteSearchIndex: %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("empty index = %q, want []", data)
	}
}
