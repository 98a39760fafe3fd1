// Package render composes a flow's steps into a markdown document and
// converts markdown to HTML. Markdown-to-HTML mechanics and syntax
// highlighting are delegated to goldmark and chroma.
package render

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/flowdeck/flowdeck/internal/flow"
)

// Renderer converts flows to markdown and markdown to HTML.
type Renderer struct {
	md goldmark.Markdown
}

// New creates a Renderer with GFM and syntax highlighting enabled.
func New() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				highlighting.NewHighlighting(
					highlighting.WithStyle("github"),
				),
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
			goldmark.WithRendererOptions(
				html.WithUnsafe(),
			),
		),
	}
}

// FlowMarkdown composes the walkthrough document for an aggregate: the
// flow's name and description followed by each step in order. Note steps
// become headed sections; match steps become fenced code blocks with the
// language guessed from the file extension.
func (r *Renderer) FlowMarkdown(agg flow.Aggregate) string {
	var b strings.Builder

	if agg.Flow != nil {
		fmt.Fprintf(&b, "# %s\n\n", agg.Flow.Name)
		if agg.Flow.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", agg.Flow.Description)
		}
	}

	for _, m := range agg.Matches {
		switch m.ContentKind {
		case flow.KindNote:
			if m.Step == nil {
				continue
			}
			if m.Step.Title != "" {
				fmt.Fprintf(&b, "## %s\n\n", m.Step.Title)
			}
			if m.Step.Body != "" {
				fmt.Fprintf(&b, "%s\n\n", m.Step.Body)
			}
		case flow.KindMatch:
			if m.Grep == nil {
				continue
			}
			fmt.Fprintf(&b, "### `%s`\n\n", m.Grep.FileName)
			fmt.Fprintf(&b, "```%s\n", LanguageForFile(m.Grep.FileName))
			for _, line := range m.Grep.Meta.ContextLines {
				b.WriteString(line)
				b.WriteByte('\n')
			}
			b.WriteString("```\n\n")
		}
	}

	return b.String()
}

// HTML converts markdown to HTML.
func (r *Renderer) HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return buf.String(), nil
}

// languageByExt maps file extensions to fence languages.
var languageByExt = map[string]string{
	".go":    "go",
	".js":    "javascript",
	".jsx":   "jsx",
	".ts":    "typescript",
	".tsx":   "tsx",
	".py":    "python",
	".rb":    "ruby",
	".rs":    "rust",
	".java":  "java",
	".kt":    "kotlin",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cs":    "csharp",
	".php":   "php",
	".sh":    "bash",
	".sql":   "sql",
	".yml":   "yaml",
	".yaml":  "yaml",
	".json":  "json",
	".html":  "html",
	".css":   "css",
	".md":    "markdown",
	".swift": "swift",
	".ex":    "elixir",
	".exs":   "elixir",
}

// LanguageForFile guesses the fence language for a file name, empty when
// unknown.
func LanguageForFile(name string) string {
	return languageByExt[strings.ToLower(filepath.Ext(name))]
}
