package semantic

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the search endpoint. idx may be nil when no
// embedder is configured; the endpoint then degrades to empty results.
func RegisterRoutes(r chi.Router, idx *Index) {
	r.Get("/api/search", searchHandler(idx))
}

func searchHandler(idx *Index) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		hits := []Hit{}
		if idx != nil && q != "" {
			found, err := idx.Search(r.Context(), q, limit)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if found != nil {
				hits = found
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"hits": hits})
	}
}
