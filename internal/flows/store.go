// Package flows is the backend feature package for flow persistence: the
// aggregate read/write surface, list summaries, and the parent/children
// relation projection.
package flows

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/flowdeck/flowdeck/internal/db"
	"github.com/flowdeck/flowdeck/internal/flow"
)

// Store provides flow persistence over SQLite.
type Store struct {
	db *db.DB
}

// NewStore creates a flows store.
func NewStore(d *db.DB) *Store {
	return &Store{db: d}
}

// SaveAggregate persists a flow and its full step list in one transaction.
// Empty ids (flow or steps) are assigned; the step list is renumbered to a
// contiguous zero-based order before writing. Returns the persisted shape.
func (s *Store) SaveAggregate(ctx context.Context, agg flow.Aggregate) (flow.Aggregate, error) {
	if agg.Flow == nil {
		return flow.Aggregate{}, fmt.Errorf("saving aggregate: missing flow")
	}

	saved := agg.Clone()
	f := saved.Flow
	now := time.Now().UTC()

	isNew := f.ID == ""
	if isNew {
		f.ID = uuid.NewString()
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	if f.Status == "" {
		f.Status = flow.StatusPrivate
	}

	sort.SliceStable(saved.Matches, func(i, j int) bool {
		return saved.Matches[i].OrderIndex < saved.Matches[j].OrderIndex
	})
	for i := range saved.Matches {
		if saved.Matches[i].FlowMatchID == "" {
			saved.Matches[i].FlowMatchID = uuid.NewString()
		}
		saved.Matches[i].OrderIndex = i
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return flow.Aggregate{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if isNew {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO flows (id, name, description, status, user_id, parent_flow_id, parent_flow_match_id,
			                    git_repo_root, git_branch, git_commit_sha, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.ID, f.Name, f.Description, f.Status, f.UserID,
			nullable(f.ParentFlowID), nullable(f.ParentFlowMatchID),
			f.GitRepoRoot, f.GitBranch, f.GitCommitSHA, f.CreatedAt, f.UpdatedAt,
		)
	} else {
		var res sql.Result
		res, err = tx.ExecContext(ctx,
			`UPDATE flows SET name=?, description=?, status=?, user_id=?, parent_flow_id=?, parent_flow_match_id=?,
			                  git_repo_root=?, git_branch=?, git_commit_sha=?, updated_at=?
			 WHERE id=?`,
			f.Name, f.Description, f.Status, f.UserID,
			nullable(f.ParentFlowID), nullable(f.ParentFlowMatchID),
			f.GitRepoRoot, f.GitBranch, f.GitCommitSHA, f.UpdatedAt, f.ID,
		)
		if err == nil {
			if n, _ := res.RowsAffected(); n == 0 {
				return flow.Aggregate{}, sql.ErrNoRows
			}
		}
	}
	if err != nil {
		return flow.Aggregate{}, fmt.Errorf("saving flow: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM flow_matches WHERE flow_id=?`, f.ID); err != nil {
		return flow.Aggregate{}, fmt.Errorf("clearing matches: %w", err)
	}
	for _, m := range saved.Matches {
		var title, body, fileName string
		grepMeta := "{}"
		if m.Step != nil {
			title, body = m.Step.Title, m.Step.Body
		}
		if m.Grep != nil {
			fileName = m.Grep.FileName
			meta, err := json.Marshal(m.Grep.Meta)
			if err != nil {
				return flow.Aggregate{}, fmt.Errorf("marshaling grep meta: %w", err)
			}
			grepMeta = string(meta)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO flow_matches (flow_match_id, flow_id, content_kind, order_index, title, body, file_name, grep_meta)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.FlowMatchID, f.ID, m.ContentKind, m.OrderIndex, title, body, fileName, grepMeta,
		)
		if err != nil {
			return flow.Aggregate{}, fmt.Errorf("saving match: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return flow.Aggregate{}, fmt.Errorf("committing aggregate: %w", err)
	}
	if saved.Matches == nil {
		saved.Matches = []flow.Match{}
	}
	return saved, nil
}

// GetAggregate retrieves a flow and its ordered steps.
func (s *Store) GetAggregate(ctx context.Context, id string) (flow.Aggregate, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return flow.Aggregate{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT flow_match_id, content_kind, order_index, title, body, file_name, grep_meta
		 FROM flow_matches WHERE flow_id=? ORDER BY order_index`, id)
	if err != nil {
		return flow.Aggregate{}, fmt.Errorf("listing matches: %w", err)
	}
	defer rows.Close()

	matches := []flow.Match{}
	for rows.Next() {
		var m flow.Match
		var title, body, fileName, grepMeta string
		if err := rows.Scan(&m.FlowMatchID, &m.ContentKind, &m.OrderIndex, &title, &body, &fileName, &grepMeta); err != nil {
			return flow.Aggregate{}, fmt.Errorf("scanning match: %w", err)
		}
		switch m.ContentKind {
		case flow.KindNote:
			m.Step = &flow.StepContent{Title: title, Body: body}
		case flow.KindMatch:
			grep := &flow.GrepMatch{FileName: fileName}
			if err := json.Unmarshal([]byte(grepMeta), &grep.Meta); err != nil {
				return flow.Aggregate{}, fmt.Errorf("unmarshaling grep meta: %w", err)
			}
			m.Grep = grep
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return flow.Aggregate{}, err
	}

	return flow.Aggregate{Flow: &f, Matches: matches}, nil
}

// Get retrieves flow metadata by id.
func (s *Store) Get(ctx context.Context, id string) (flow.Flow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+flowColumns+` FROM flows WHERE id=?`, id)
	f, err := scanFlow(row)
	if err != nil {
		return flow.Flow{}, fmt.Errorf("getting flow: %w", err)
	}
	return f, nil
}

// List returns summaries of the user's flows plus public ones, most
// recently updated first. An empty userID lists public flows only.
func (s *Store) List(ctx context.Context, userID string) ([]flow.Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+flowColumns+` FROM flows WHERE user_id=? OR status='public' ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing flows: %w", err)
	}
	defer rows.Close()

	var result []flow.Summary
	for rows.Next() {
		f, err := scanFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning flow: %w", err)
		}
		result = append(result, flow.Summary{Flow: f})
	}
	return result, rows.Err()
}

// SearchByName returns public flows whose name or description contains
// the query, most recently updated first.
func (s *Store) SearchByName(ctx context.Context, query string, limit int) ([]flow.Flow, error) {
	if limit <= 0 {
		limit = 10
	}
	like := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+flowColumns+` FROM flows
		 WHERE status='public' AND (name LIKE ? COLLATE NOCASE OR description LIKE ? COLLATE NOCASE)
		 ORDER BY updated_at DESC LIMIT ?`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("searching flows: %w", err)
	}
	defer rows.Close()

	var result []flow.Flow
	for rows.Next() {
		f, err := scanFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning flow: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// Relations returns the parent/children projection for a flow.
func (s *Store) Relations(ctx context.Context, id string) (flow.Relation, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return flow.Relation{}, err
	}

	rel := flow.Relation{Children: []flow.Flow{}}
	if f.ParentFlowID != "" {
		parent, err := s.Get(ctx, f.ParentFlowID)
		if err == nil {
			rel.Parent = &parent
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+flowColumns+` FROM flows WHERE parent_flow_id=? ORDER BY created_at`, id)
	if err != nil {
		return flow.Relation{}, fmt.Errorf("listing children: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanFlow(rows)
		if err != nil {
			return flow.Relation{}, fmt.Errorf("scanning child: %w", err)
		}
		rel.Children = append(rel.Children, c)
	}
	return rel, rows.Err()
}

// Delete removes a flow and (via cascade) its matches.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM flows WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("deleting flow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const flowColumns = `id, name, description, status, user_id, parent_flow_id, parent_flow_match_id,
                     git_repo_root, git_branch, git_commit_sha, created_at, updated_at`

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanFlow(row scanner) (flow.Flow, error) {
	var f flow.Flow
	var parentFlowID, parentMatchID sql.NullString
	err := row.Scan(&f.ID, &f.Name, &f.Description, &f.Status, &f.UserID, &parentFlowID, &parentMatchID,
		&f.GitRepoRoot, &f.GitBranch, &f.GitCommitSHA, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return flow.Flow{}, err
	}
	f.ParentFlowID = parentFlowID.String
	f.ParentFlowMatchID = parentMatchID.String
	return f, nil
}

// nullable maps "" to NULL for optional reference columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
