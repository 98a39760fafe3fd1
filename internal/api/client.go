// Package api is the typed HTTP client for the flowdeck REST surface. It
// owns the wire contract only; state containers own what comes back.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/flowdeck/flowdeck/internal/auth"
	"github.com/flowdeck/flowdeck/internal/flow"
)

// ErrAuthExpired marks a 401 response. The stored token has already been
// cleared when this is returned; the next auth-gated action surfaces it.
var ErrAuthExpired = errors.New("api: auth token expired")

// TagPage is the paginated tag search response.
type TagPage struct {
	Rows    []flow.Tag `json:"rows"`
	Page    int        `json:"page"`
	PerPage int        `json:"per_page"`
}

// Session is the auth exchange response.
type Session struct {
	APIToken string    `json:"api_token"`
	User     flow.User `json:"user"`
	Message  string    `json:"message,omitempty"`
}

// apiError is the backend's error envelope.
type apiError struct {
	Error  string   `json:"error,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// Client talks to one flowdeck backend.
type Client struct {
	baseURL string
	http    *http.Client
	session *auth.Store
}

// New creates a client for the given base URL. session may be nil for
// unauthenticated use.
func New(baseURL string, session *auth.Store) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		session: session,
	}
}

// FlowPreview fetches the read-only preview projection of a flow.
func (c *Client) FlowPreview(ctx context.Context, id string) (flow.Summary, error) {
	var out flow.Summary
	err := c.do(ctx, http.MethodGet, "/api/flows/"+url.PathEscape(id), nil, &out)
	return out, err
}

// Flows lists the caller's flows (plus public ones when signed out).
func (c *Client) Flows(ctx context.Context) ([]flow.Summary, error) {
	var out []flow.Summary
	err := c.do(ctx, http.MethodGet, "/api/flows", nil, &out)
	return out, err
}

// FlowAggregate fetches the editable flow+matches projection.
func (c *Client) FlowAggregate(ctx context.Context, id string) (flow.Aggregate, error) {
	var out flow.Aggregate
	err := c.do(ctx, http.MethodGet, "/api/flow_aggregates/"+url.PathEscape(id), nil, &out)
	return out, err
}

// CreateFlowAggregate persists a new flow and returns the echo with
// backend-assigned ids.
func (c *Client) CreateFlowAggregate(ctx context.Context, agg flow.Aggregate) (flow.Aggregate, error) {
	var out flow.Aggregate
	err := c.do(ctx, http.MethodPost, "/api/flow_aggregates", agg, &out)
	return out, err
}

// UpdateFlowAggregate replaces a flow and its matches, returning the echo.
func (c *Client) UpdateFlowAggregate(ctx context.Context, agg flow.Aggregate) (flow.Aggregate, error) {
	if agg.Flow == nil || agg.Flow.ID == "" {
		return flow.Aggregate{}, fmt.Errorf("api: updating flow without id")
	}
	var out flow.Aggregate
	err := c.do(ctx, http.MethodPut, "/api/flow_aggregates/"+url.PathEscape(agg.Flow.ID), agg, &out)
	return out, err
}

// FlowRelations fetches a flow's parent/children projection.
func (c *Client) FlowRelations(ctx context.Context, id string) (flow.Relation, error) {
	var out flow.Relation
	err := c.do(ctx, http.MethodGet, "/api/flow_relations/"+url.PathEscape(id), nil, &out)
	return out, err
}

// SearchTags runs a remote tag search.
func (c *Client) SearchTags(ctx context.Context, query string, page, perPage int) (TagPage, error) {
	v := url.Values{}
	v.Set("query", query)
	v.Set("page", strconv.Itoa(page))
	v.Set("per_page", strconv.Itoa(perPage))

	var out TagPage
	err := c.do(ctx, http.MethodGet, "/api/tags?"+v.Encode(), nil, &out)
	return out, err
}

// UserTags fetches the signed-in user's favourite tags.
func (c *Client) UserTags(ctx context.Context) (TagPage, error) {
	var out TagPage
	err := c.do(ctx, http.MethodGet, "/api/user_tags", nil, &out)
	return out, err
}

// CreateFavoriteTag marks a tag as favourite. Idempotent.
func (c *Client) CreateFavoriteTag(ctx context.Context, tagID string) error {
	body := map[string]string{"tag_id": tagID}
	return c.do(ctx, http.MethodPost, "/api/favorite_tags", body, nil)
}

// DeleteFavoriteTag unmarks a favourite. Idempotent.
func (c *Client) DeleteFavoriteTag(ctx context.Context, tagID string) error {
	return c.do(ctx, http.MethodDelete, "/api/favorite_tags/"+url.PathEscape(tagID), nil, nil)
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	body := map[string]string{"email": email, "password": password}
	var out Session
	err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out)
	return out, err
}

// Register creates an account and returns its first session.
func (c *Client) Register(ctx context.Context, email, name, password string) (Session, error) {
	body := map[string]string{"email": email, "name": name, "password": password}
	var out Session
	err := c.do(ctx, http.MethodPost, "/api/auth/register", body, &out)
	return out, err
}

// do performs one request with the bearer token attached when present. A
// 401 clears the stored token and returns ErrAuthExpired; other non-2xx
// statuses are decoded from the error envelope.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if c.session != nil {
			if err := c.session.Clear(); err != nil {
				log.Printf("api: clearing expired session: %v", err)
			}
		}
		log.Printf("api: %s %s returned 401, stored token cleared", method, path)
		return ErrAuthExpired
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope apiError
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
			if envelope.Error != "" {
				return fmt.Errorf("%s %s: %s", method, path, envelope.Error)
			}
			if len(envelope.Errors) > 0 {
				return fmt.Errorf("%s %s: %s", method, path, strings.Join(envelope.Errors, "; "))
			}
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
