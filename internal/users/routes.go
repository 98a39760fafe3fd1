package users

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flowdeck/flowdeck/internal/flow"
)

type credentials struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type sessionResponse struct {
	APIToken string    `json:"api_token"`
	User     flow.User `json:"user"`
	Message  string    `json:"message,omitempty"`
}

// RegisterRoutes mounts the auth endpoints on the given router.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Post("/api/auth/login", loginHandler(store))
	r.Post("/api/auth/register", registerHandler(store))
}

func loginHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		u, token, err := store.Login(r.Context(), creds.Email, creds.Password)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, sessionResponse{APIToken: token, User: u, Message: "logged in"})
	}
}

func registerHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		var validationErrors []string
		if creds.Email == "" {
			validationErrors = append(validationErrors, "email is required")
		}
		if len(creds.Password) < 8 {
			validationErrors = append(validationErrors, "password must be at least 8 characters")
		}
		if len(validationErrors) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": validationErrors})
			return
		}

		u, token, err := store.Register(r.Context(), creds.Email, creds.Name, creds.Password)
		if err != nil {
			if errors.Is(err, ErrEmailTaken) {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": []string{"email already registered"}})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		writeJSON(w, http.StatusCreated, sessionResponse{APIToken: token, User: u, Message: "account created"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
