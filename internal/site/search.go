package site

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/flowdeck/flowdeck/internal/flow"
)

// SearchEntry is one searchable flow in the exported site.
type SearchEntry struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Content string `json:"content"`
}

// searchEntryFor flattens a flow's note text into a search entry.
func searchEntryFor(agg flow.Aggregate) SearchEntry {
	var b strings.Builder
	for _, m := range agg.Matches {
		if m.Step == nil {
			continue
		}
		b.WriteString(m.Step.Title)
		b.WriteString(" ")
		b.WriteString(m.Step.Body)
		b.WriteString(" ")
	}

	content := b.String()
	const maxContent = 2000
	if len(content) > maxContent {
		content = content[:maxContent]
	}

	return SearchEntry{
		Path:    "flows/" + agg.Flow.ID + ".html",
		Title:   agg.Flow.Name,
		Summary: agg.Flow.Description,
		Content: content,
	}
}

// WriteSearchIndex writes the entries as JSON to the given path.
func WriteSearchIndex(entries []SearchEntry, path string) error {
	if entries == nil {
		entries = []SearchEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
