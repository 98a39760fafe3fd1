package tags

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/flowdeck/flowdeck/internal/flow"
	"github.com/flowdeck/flowdeck/internal/users"
)

// tagPage is the paginated search response.
type tagPage struct {
	Rows    []flow.Tag `json:"rows"`
	Page    int        `json:"page"`
	PerPage int        `json:"per_page"`
}

// RegisterRoutes mounts the tag endpoints on the given router.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Get("/api/tags", searchTagsHandler(store))
	r.Post("/api/tags", createTagHandler(store))
	r.Get("/api/user_tags", userTagsHandler(store))
	r.Post("/api/favorite_tags", favoriteHandler(store))
	r.Delete("/api/favorite_tags/{id}", unfavoriteHandler(store))
	r.Get("/api/flows/{id}/tags", flowTagsHandler(store))
	r.Post("/api/flows/{id}/tags", attachTagHandler(store))
	r.Delete("/api/flows/{id}/tags/{tagID}", detachTagHandler(store))
}

func searchTagsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		if page < 1 {
			page = 1
		}
		perPage, _ := strconv.Atoi(q.Get("per_page"))
		if perPage <= 0 {
			perPage = DefaultPerPage
		}

		var userID string
		if u, ok := users.FromContext(r.Context()); ok {
			userID = u.ID
		}

		rows, err := store.Search(r.Context(), userID, q.Get("query"), page, perPage)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if rows == nil {
			rows = []flow.Tag{}
		}
		writeJSON(w, http.StatusOK, tagPage{Rows: rows, Page: page, PerPage: perPage})
	}
}

func createTagHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := users.FromContext(r.Context()); !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}

		var t flow.Tag
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if t.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}

		created, err := store.Upsert(r.Context(), t)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func userTagsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := users.FromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}

		rows, err := store.UserTags(r.Context(), u.ID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if rows == nil {
			rows = []flow.Tag{}
		}
		writeJSON(w, http.StatusOK, tagPage{Rows: rows, Page: 1, PerPage: len(rows)})
	}
}

func favoriteHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := users.FromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}

		var body struct {
			TagID string `json:"tag_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.TagID == "" {
			http.Error(w, "tag_id is required", http.StatusBadRequest)
			return
		}

		if err := store.Favorite(r.Context(), u.ID, body.TagID); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func unfavoriteHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := users.FromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}

		if err := store.Unfavorite(r.Context(), u.ID, chi.URLParam(r, "id")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func flowTagsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := store.ForFlow(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if rows == nil {
			rows = []flow.Tag{}
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func attachTagHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := users.FromContext(r.Context()); !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}

		var body struct {
			TagID string `json:"tag_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.TagID == "" {
			http.Error(w, "tag_id is required", http.StatusBadRequest)
			return
		}

		if err := store.Attach(r.Context(), chi.URLParam(r, "id"), body.TagID); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func detachTagHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := users.FromContext(r.Context()); !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}

		if err := store.Detach(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "tagID")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
