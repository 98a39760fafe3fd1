package flows

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flowdeck/flowdeck/internal/flow"
	"github.com/flowdeck/flowdeck/internal/live"
	"github.com/flowdeck/flowdeck/internal/render"
	"github.com/flowdeck/flowdeck/internal/users"
)

// RegisterRoutes mounts the flow endpoints on the given router. hub may be
// nil when the live feed is disabled.
func RegisterRoutes(r chi.Router, store *Store, renderer *render.Renderer, hub *live.Hub) {
	r.Get("/api/flows", listFlowsHandler(store))
	r.Get("/api/flows/{id}", previewFlowHandler(store, renderer))
	r.Get("/api/flow_aggregates/{id}", getAggregateHandler(store))
	r.Post("/api/flow_aggregates", createAggregateHandler(store, hub))
	r.Put("/api/flow_aggregates/{id}", updateAggregateHandler(store, hub))
	r.Delete("/api/flow_aggregates/{id}", deleteAggregateHandler(store))
	r.Get("/api/flow_relations/{id}", relationsHandler(store))
}

// canRead reports whether the requester may see the flow: public flows are
// open, everything else is owner-only.
func canRead(r *http.Request, f flow.Flow) bool {
	if f.Status == flow.StatusPublic {
		return true
	}
	u, ok := users.FromContext(r.Context())
	return ok && u.ID == f.UserID
}

func listFlowsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var userID string
		if u, ok := users.FromContext(r.Context()); ok {
			userID = u.ID
		}
		result, err := store.List(r.Context(), userID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if result == nil {
			result = []flow.Summary{}
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func previewFlowHandler(store *Store, renderer *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		agg, err := store.GetAggregate(r.Context(), id)
		if err != nil {
			http.Error(w, "flow not found", http.StatusNotFound)
			return
		}
		if !canRead(r, *agg.Flow) {
			http.Error(w, "flow not found", http.StatusNotFound)
			return
		}
		summary := flow.Summary{
			Flow:     *agg.Flow,
			Markdown: renderer.FlowMarkdown(agg),
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func getAggregateHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		agg, err := store.GetAggregate(r.Context(), id)
		if err != nil {
			http.Error(w, "flow not found", http.StatusNotFound)
			return
		}
		if !canRead(r, *agg.Flow) {
			http.Error(w, "flow not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, agg)
	}
}

func createAggregateHandler(store *Store, hub *live.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := users.FromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}

		var agg flow.Aggregate
		if err := json.NewDecoder(r.Body).Decode(&agg); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if agg.Flow == nil || agg.Flow.Name == "" {
			http.Error(w, "flow name is required", http.StatusBadRequest)
			return
		}
		agg.Flow.ID = ""
		agg.Flow.UserID = u.ID

		saved, err := store.SaveAggregate(r.Context(), agg)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if hub != nil {
			hub.Broadcast(flow.Summary{Flow: *saved.Flow})
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

func updateAggregateHandler(store *Store, hub *live.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := users.FromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}

		id := chi.URLParam(r, "id")
		existing, err := store.Get(r.Context(), id)
		if err != nil {
			http.Error(w, "flow not found", http.StatusNotFound)
			return
		}
		if existing.UserID != u.ID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var agg flow.Aggregate
		if err := json.NewDecoder(r.Body).Decode(&agg); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if agg.Flow == nil {
			http.Error(w, "flow is required", http.StatusBadRequest)
			return
		}
		agg.Flow.ID = id
		agg.Flow.UserID = existing.UserID
		agg.Flow.CreatedAt = existing.CreatedAt

		saved, err := store.SaveAggregate(r.Context(), agg)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if hub != nil {
			hub.Broadcast(flow.Summary{Flow: *saved.Flow})
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func deleteAggregateHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := users.FromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}

		id := chi.URLParam(r, "id")
		existing, err := store.Get(r.Context(), id)
		if err != nil {
			http.Error(w, "flow not found", http.StatusNotFound)
			return
		}
		if existing.UserID != u.ID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if err := store.Delete(r.Context(), id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func relationsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		rel, err := store.Relations(r.Context(), id)
		if err != nil {
			http.Error(w, "flow not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, rel)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
