// Package tags is the backend feature package for the tag catalog, the
// per-flow tag join, and per-user favourites.
package tags

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/flowdeck/flowdeck/internal/db"
	"github.com/flowdeck/flowdeck/internal/flow"
)

// DefaultPerPage bounds tag search pages when the client doesn't say.
const DefaultPerPage = 50

// Store provides tag persistence.
type Store struct {
	db *db.DB
}

// NewStore creates a tags store.
func NewStore(d *db.DB) *Store {
	return &Store{db: d}
}

// Upsert creates the tag, assigning an id and slug when absent. An
// existing tag with the same slug is reused and returned.
func (s *Store) Upsert(ctx context.Context, t flow.Tag) (flow.Tag, error) {
	if t.Slug == "" {
		t.Slug = flow.Slugify(t.Name)
	}
	if t.Slug == "" {
		return flow.Tag{}, fmt.Errorf("upserting tag: empty name")
	}

	var existing flow.Tag
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, slug, color FROM tags WHERE slug=?`, t.Slug,
	).Scan(&existing.ID, &existing.Name, &existing.Slug, &existing.Color)
	if err == nil {
		return existing, nil
	}
	if err != sql.ErrNoRows {
		return flow.Tag{}, fmt.Errorf("looking up tag: %w", err)
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tags (id, name, slug, color) VALUES (?, ?, ?, ?)`,
		t.ID, t.Name, t.Slug, t.Color,
	)
	if err != nil {
		return flow.Tag{}, fmt.Errorf("creating tag: %w", err)
	}
	return t, nil
}

// Search returns tags whose name or slug starts with the query,
// case-insensitively, paged. userID marks favourites in the result and may
// be empty.
func (s *Store) Search(ctx context.Context, userID, query string, page, perPage int) ([]flow.Tag, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	pattern := query + "%"

	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.name, t.slug, t.color,
		        EXISTS(SELECT 1 FROM favorite_tags f WHERE f.tag_id = t.id AND f.user_id = ?)
		 FROM tags t
		 WHERE t.name LIKE ? COLLATE NOCASE OR t.slug LIKE ? COLLATE NOCASE
		 ORDER BY t.name
		 LIMIT ? OFFSET ?`,
		userID, pattern, pattern, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("searching tags: %w", err)
	}
	defer rows.Close()
	return scanTags(rows)
}

// UserTags returns the user's favourite tags.
func (s *Store) UserTags(ctx context.Context, userID string) ([]flow.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.name, t.slug, t.color, 1
		 FROM tags t JOIN favorite_tags f ON f.tag_id = t.id
		 WHERE f.user_id = ? ORDER BY t.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing user tags: %w", err)
	}
	defer rows.Close()
	return scanTags(rows)
}

// Favorite marks a tag as the user's favourite. Idempotent.
func (s *Store) Favorite(ctx context.Context, userID, tagID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO favorite_tags (user_id, tag_id) VALUES (?, ?)`, userID, tagID)
	if err != nil {
		return fmt.Errorf("favoriting tag: %w", err)
	}
	return nil
}

// Unfavorite removes the favourite mark. Idempotent.
func (s *Store) Unfavorite(ctx context.Context, userID, tagID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM favorite_tags WHERE user_id=? AND tag_id=?`, userID, tagID)
	if err != nil {
		return fmt.Errorf("unfavoriting tag: %w", err)
	}
	return nil
}

// ForFlow returns the tags attached to a flow.
func (s *Store) ForFlow(ctx context.Context, flowID string) ([]flow.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.name, t.slug, t.color, 0
		 FROM tags t JOIN flow_tags ft ON ft.tag_id = t.id
		 WHERE ft.flow_id = ? ORDER BY t.name`, flowID)
	if err != nil {
		return nil, fmt.Errorf("listing flow tags: %w", err)
	}
	defer rows.Close()
	return scanTags(rows)
}

// Attach links a tag to a flow. Idempotent.
func (s *Store) Attach(ctx context.Context, flowID, tagID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO flow_tags (flow_id, tag_id) VALUES (?, ?)`, flowID, tagID)
	if err != nil {
		return fmt.Errorf("attaching tag: %w", err)
	}
	return nil
}

// Detach unlinks a tag from a flow. Idempotent.
func (s *Store) Detach(ctx context.Context, flowID, tagID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM flow_tags WHERE flow_id=? AND tag_id=?`, flowID, tagID)
	if err != nil {
		return fmt.Errorf("detaching tag: %w", err)
	}
	return nil
}

func scanTags(rows *sql.Rows) ([]flow.Tag, error) {
	var out []flow.Tag
	for rows.Next() {
		var t flow.Tag
		var fav int
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Color, &fav); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		t.IsFavourite = fav != 0
		out = append(out, t)
	}
	return out, rows.Err()
}
