// Package flow defines the domain types shared by the client state
// containers, the API client, and the reference backend.
package flow

import (
	"strings"
	"time"
)

// Status controls the visibility of a flow.
type Status string

const (
	StatusPrivate Status = "private"
	StatusDraft   Status = "draft"
	StatusPublic  Status = "public"
)

// Flow is a named, ordered walkthrough document. ID is empty until the
// backend assigns one on first save.
type Flow struct {
	ID                string    `json:"id,omitempty"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Status            Status    `json:"status"`
	UserID            string    `json:"user_id,omitempty"`
	ParentFlowID      string    `json:"parent_flow_id,omitempty"`
	ParentFlowMatchID string    `json:"parent_flow_match_id,omitempty"`
	GitRepoRoot       string    `json:"git_repo_root,omitempty"`
	GitBranch         string    `json:"git_branch,omitempty"`
	GitCommitSHA      string    `json:"git_commit_sha,omitempty"`
	CreatedAt         time.Time `json:"created_at,omitempty"`
	UpdatedAt         time.Time `json:"updated_at,omitempty"`
}

// ContentKind distinguishes free-text notes from code-location matches.
type ContentKind string

const (
	KindNote  ContentKind = "note"
	KindMatch ContentKind = "match"
)

// StepContent is the editable text of a note step.
type StepContent struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// NoteContent is the legacy note shape, semantically equivalent to
// StepContent. It is accepted on load and normalized away.
type NoteContent struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GrepMeta carries the captured source excerpt for a match step.
type GrepMeta struct {
	ContextLines []string `json:"context_lines"`
	Line         string   `json:"line"`
	LineNo       int      `json:"line_no"`
}

// GrepMatch references a source-code location with its surrounding context.
type GrepMatch struct {
	FileName string   `json:"file_name"`
	Meta     GrepMeta `json:"grep_meta"`
}

// Match is one ordered step in a flow. FlowMatchID is the only stable
// identity; OrderIndex is positional and is renumbered by mutations.
type Match struct {
	FlowMatchID string       `json:"flow_match_id"`
	ContentKind ContentKind  `json:"content_kind"`
	OrderIndex  int          `json:"order_index"`
	Step        *StepContent `json:"step_content,omitempty"`
	Grep        *GrepMatch   `json:"match,omitempty"`
	Note        *NoteContent `json:"note,omitempty"`
}

// Normalize folds the legacy note shape into Step. It is a no-op when Step
// is already populated.
func (m *Match) Normalize() {
	if m.Note != nil {
		if m.Step == nil {
			m.Step = &StepContent{Title: m.Note.Name, Body: m.Note.Description}
		}
		m.Note = nil
	}
}

// Clone returns a deep copy of the match.
func (m Match) Clone() Match {
	c := m
	if m.Step != nil {
		step := *m.Step
		c.Step = &step
	}
	if m.Grep != nil {
		grep := *m.Grep
		grep.Meta.ContextLines = append([]string(nil), m.Grep.Meta.ContextLines...)
		c.Grep = &grep
	}
	if m.Note != nil {
		note := *m.Note
		c.Note = &note
	}
	return c
}

// Aggregate is the editable flow projection: metadata plus the full ordered
// step list. Both fields must be present in a load payload.
type Aggregate struct {
	Flow    *Flow   `json:"flow"`
	Matches []Match `json:"matches"`
}

// Clone returns a deep copy of the aggregate.
func (a Aggregate) Clone() Aggregate {
	c := Aggregate{}
	if a.Flow != nil {
		f := *a.Flow
		c.Flow = &f
	}
	if a.Matches != nil {
		c.Matches = make([]Match, len(a.Matches))
		for i, m := range a.Matches {
			c.Matches[i] = m.Clone()
		}
	}
	return c
}

// Summary is the read-only preview projection of a flow, carrying
// pre-rendered markdown instead of structured steps.
type Summary struct {
	Flow
	Markdown string `json:"markdown,omitempty"`
}

// Tag labels flows. An empty ID marks a free-text candidate that has not
// been created on the backend yet.
type Tag struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Color       string `json:"color,omitempty"`
	IsFavourite bool   `json:"is_favourite"`
}

// Relation is the read-only parent/children projection for a flow.
type Relation struct {
	Parent   *Flow  `json:"parent"`
	Children []Flow `json:"children"`
}

// Slugify turns a free-text tag name into its canonical slug form.
func Slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	return b.String()
}

// User is the signed-in account as returned by the auth endpoints.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}
