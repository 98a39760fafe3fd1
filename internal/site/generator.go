// Package site exports flows as a static HTML site: an index page grouped
// by day, one page per flow, and a JSON search index.
package site

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"

	"github.com/flowdeck/flowdeck/internal/flow"
	"github.com/flowdeck/flowdeck/internal/render"
)

// Generator writes flows as static HTML pages.
type Generator struct {
	OutputDir   string
	ProjectName string

	renderer *render.Renderer
}

// NewGenerator creates a Generator writing under outputDir.
func NewGenerator(outputDir, projectName string) *Generator {
	return &Generator{
		OutputDir:   outputDir,
		ProjectName: projectName,
		renderer:    render.New(),
	}
}

// pageData is passed to the page template.
type pageData struct {
	Title       string
	ProjectName string
	Content     template.HTML
	BasePath    string
}

// indexGroup is one date section on the index page.
type indexGroup struct {
	Label string
	Flows []indexEntry
}

type indexEntry struct {
	Name        string
	Description string
	Href        string
}

// Generate renders every aggregate to flows/<id>.html plus the index page
// and search index. Returns the number of flow pages written.
func (g *Generator) Generate(aggs []flow.Aggregate) (int, error) {
	if err := os.MkdirAll(filepath.Join(g.OutputDir, "flows"), 0o755); err != nil {
		return 0, err
	}

	tmpl, err := template.New("page").Parse(pageTemplate)
	if err != nil {
		return 0, fmt.Errorf("parsing page template: %w", err)
	}

	if err := os.WriteFile(filepath.Join(g.OutputDir, "style.css"), []byte(cssContent), 0o644); err != nil {
		return 0, err
	}

	var entries []SearchEntry
	written := 0
	for _, agg := range aggs {
		if agg.Flow == nil || agg.Flow.ID == "" {
			continue
		}
		if err := g.renderFlowPage(tmpl, agg); err != nil {
			return written, fmt.Errorf("rendering flow %s: %w", agg.Flow.ID, err)
		}
		entries = append(entries, searchEntryFor(agg))
		written++
	}

	if err := g.renderIndex(tmpl, aggs); err != nil {
		return written, fmt.Errorf("rendering index: %w", err)
	}
	if err := WriteSearchIndex(entries, filepath.Join(g.OutputDir, "search-index.json")); err != nil {
		return written, fmt.Errorf("writing search index: %w", err)
	}

	return written, nil
}

// renderFlowPage writes one flow as flows/<id>.html.
func (g *Generator) renderFlowPage(tmpl *template.Template, agg flow.Aggregate) error {
	md := g.renderer.FlowMarkdown(agg)
	htmlContent, err := g.renderer.HTML(md)
	if err != nil {
		return err
	}

	data := pageData{
		Title:       agg.Flow.Name,
		ProjectName: g.ProjectName,
		Content:     template.HTML(htmlContent),
		BasePath:    "../",
	}

	outPath := filepath.Join(g.OutputDir, "flows", agg.Flow.ID+".html")
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	return tmpl.Execute(f, data)
}

// renderIndex writes index.html with flows grouped by day, newest first.
func (g *Generator) renderIndex(tmpl *template.Template, aggs []flow.Aggregate) error {
	sorted := make([]flow.Aggregate, 0, len(aggs))
	for _, a := range aggs {
		if a.Flow != nil && a.Flow.ID != "" {
			sorted = append(sorted, a)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Flow.UpdatedAt.After(sorted[j].Flow.UpdatedAt)
	})

	var groups []indexGroup
	for _, a := range sorted {
		label := a.Flow.UpdatedAt.Format("January 2, 2006")
		entry := indexEntry{
			Name:        a.Flow.Name,
			Description: a.Flow.Description,
			Href:        "flows/" + a.Flow.ID + ".html",
		}
		if len(groups) > 0 && groups[len(groups)-1].Label == label {
			groups[len(groups)-1].Flows = append(groups[len(groups)-1].Flows, entry)
			continue
		}
		groups = append(groups, indexGroup{Label: label, Flows: []indexEntry{entry}})
	}

	idxTmpl, err := template.New("index").Parse(indexTemplate)
	if err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(g.OutputDir, "index.html"))
	if err != nil {
		return err
	}
	defer f.Close()

	return idxTmpl.Execute(f, struct {
		ProjectName string
		Groups      []indexGroup
	}{g.ProjectName, groups})
}
