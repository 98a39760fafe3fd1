// Package users is the backend feature package for accounts and api
// tokens. Tokens are opaque uuids handed to the client and stored hashed.
package users

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flowdeck/flowdeck/internal/db"
	"github.com/flowdeck/flowdeck/internal/flow"
)

// ErrInvalidCredentials covers both unknown emails and wrong passwords, so
// responses don't reveal which one it was.
var ErrInvalidCredentials = errors.New("users: invalid credentials")

// ErrEmailTaken is returned when registering an existing email.
var ErrEmailTaken = errors.New("users: email already registered")

// Store provides account and token persistence.
type Store struct {
	db *db.DB
}

// NewStore creates a users store.
func NewStore(d *db.DB) *Store {
	return &Store{db: d}
}

// Register creates an account and returns the user with a fresh api token.
func (s *Store) Register(ctx context.Context, email, name, password string) (flow.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return flow.User{}, "", fmt.Errorf("users: email and password are required")
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return flow.User{}, "", fmt.Errorf("generating salt: %w", err)
	}
	saltHex := hex.EncodeToString(salt)

	u := flow.User{ID: uuid.NewString(), Email: email, Name: name}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, salt) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, hashPassword(password, saltHex), saltHex,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return flow.User{}, "", ErrEmailTaken
		}
		return flow.User{}, "", fmt.Errorf("creating user: %w", err)
	}

	token, err := s.issueToken(ctx, u.ID)
	if err != nil {
		return flow.User{}, "", err
	}
	return u, token, nil
}

// Login verifies credentials and returns the user with a fresh api token.
func (s *Store) Login(ctx context.Context, email, password string) (flow.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var u flow.User
	var passwordHash, salt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, salt FROM users WHERE email=?`, email,
	).Scan(&u.ID, &u.Email, &u.Name, &passwordHash, &salt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return flow.User{}, "", ErrInvalidCredentials
		}
		return flow.User{}, "", fmt.Errorf("looking up user: %w", err)
	}
	if hashPassword(password, salt) != passwordHash {
		return flow.User{}, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(ctx, u.ID)
	if err != nil {
		return flow.User{}, "", err
	}
	return u, token, nil
}

// Authenticate resolves an api token to its user. Unknown tokens return
// sql.ErrNoRows.
func (s *Store) Authenticate(ctx context.Context, token string) (flow.User, error) {
	var u flow.User
	err := s.db.QueryRowContext(ctx,
		`SELECT u.id, u.email, u.name FROM users u
		 JOIN api_tokens t ON t.user_id = u.id
		 WHERE t.token_hash = ?`, hashToken(token),
	).Scan(&u.ID, &u.Email, &u.Name)
	if err != nil {
		return flow.User{}, err
	}

	_, _ = s.db.ExecContext(ctx,
		`UPDATE api_tokens SET last_used=? WHERE token_hash=?`,
		time.Now().UTC(), hashToken(token))
	return u, nil
}

func (s *Store) issueToken(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_tokens (id, user_id, token_hash) VALUES (?, ?, ?)`,
		uuid.NewString(), userID, hashToken(token),
	)
	if err != nil {
		return "", fmt.Errorf("issuing token: %w", err)
	}
	return token, nil
}

func hashPassword(password, saltHex string) string {
	sum := sha256.Sum256([]byte(saltHex + ":" + password))
	return hex.EncodeToString(sum[:])
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
