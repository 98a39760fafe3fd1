package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flowdeck/flowdeck/internal/auth"
	"github.com/flowdeck/flowdeck/internal/flow"
)

func sessionStore(t *testing.T) *auth.Store {
	t.Helper()
	return auth.NewStore(filepath.Join(t.TempDir(), "session.json"))
}

func TestBearerTokenAttached(t *testing.T) {
	store := sessionStore(t)
	if err := store.Save("tok-1", flow.User{ID: "u1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]flow.Summary{})
	}))
	defer srv.Close()

	c := New(srv.URL, store)
	if _, err := c.Flows(context.Background()); err != nil {
		t.Fatalf("Flows: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestUnauthorizedClearsSession(t *testing.T) {
	store := sessionStore(t)
	store.Save("stale-token", flow.User{ID: "u1"})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, store)
	_, err := c.Flows(context.Background())
	if !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("err = %v, want ErrAuthExpired", err)
	}
	if store.Token() != "" {
		t.Error("stale token survived a 401")
	}
}

func TestErrorEnvelopeDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{"errors": []string{"email is required", "password must be at least 8 characters"}})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.Register(context.Background(), "", "", "short")
	if err == nil {
		t.Fatal("expected validation error")
	}
	want := "email is required; password must be at least 8 characters"
	if got := err.Error(); !strings.Contains(got, want) {
		t.Errorf("err = %q, want it to contain %q", got, want)
	}
}

func TestCreateFlowAggregateRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/flow_aggregates" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var agg flow.Aggregate
		json.NewDecoder(r.Body).Decode(&agg)
		agg.Flow.ID = "f-new"
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(agg)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	created, err := c.CreateFlowAggregate(context.Background(), flow.Aggregate{
		Flow:    &flow.Flow{Name: "New flow"},
		Matches: []flow.Match{},
	})
	if err != nil {
		t.Fatalf("CreateFlowAggregate: %v", err)
	}
	if created.Flow.ID != "f-new" || created.Flow.Name != "New flow" {
		t.Errorf("created = %+v", created.Flow)
	}
}

func TestUpdateWithoutIDRejectedLocally(t *testing.T) {
	c := New("http://invalid.localhost", nil)
	_, err := c.UpdateFlowAggregate(context.Background(), flow.Aggregate{Flow: &flow.Flow{}})
	if err == nil {
		t.Fatal("expected error for id-less update")
	}
}

func TestFlowPreviewFetchesRenderedSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/flows/f-9" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(flow.Summary{
			Flow:     flow.Flow{ID: "f-9", Name: "Request lifecycle"},
			Markdown: "# Request lifecycle\n",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	summary, err := c.FlowPreview(context.Background(), "f-9")
	if err != nil {
		t.Fatalf("FlowPreview: %v", err)
	}
	if summary.Name != "Request lifecycle" || !strings.Contains(summary.Markdown, "# Request lifecycle") {
		t.Errorf("summary = %+v", summary)
	}
}

func TestUserTagsListsFavourites(t *testing.T) {
	store := sessionStore(t)
	store.Save("tok-2", flow.User{ID: "u1"})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/user_tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-2" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(TagPage{
			Rows:    []flow.Tag{{ID: "t1", Name: "Concurrency", Slug: "concurrency", IsFavourite: true}},
			Page:    1,
			PerPage: 25,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, store)
	page, err := c.UserTags(context.Background())
	if err != nil {
		t.Fatalf("UserTags: %v", err)
	}
	if len(page.Rows) != 1 || page.Rows[0].Slug != "concurrency" || !page.Rows[0].IsFavourite {
		t.Errorf("page = %+v", page)
	}
}

func TestSearchTagsQueryString(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(TagPage{Rows: []flow.Tag{{ID: "t1"}}, Page: 2, PerPage: 25})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	page, err := c.SearchTags(context.Background(), "go", 2, 25)
	if err != nil {
		t.Fatalf("SearchTags: %v", err)
	}
	if page.Page != 2 || len(page.Rows) != 1 {
		t.Errorf("page = %+v", page)
	}
	for _, want := range []string{"query=go", "page=2", "per_page=25"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query string %q missing %q", gotQuery, want)
		}
	}
}
