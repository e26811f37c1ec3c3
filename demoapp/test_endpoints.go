package demoapp

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	log "gopkg.in/inconshreveable/log15.v2"
)

// RegisterTestEndpoints adds routes that let a remote test seed and remove users. Only enable them for demo
// instances.
func RegisterTestEndpoints(r chi.Router, store UserStore, logger log.Logger) {
	r.Post("/test/users", func(w http.ResponseWriter, req *http.Request) {
		var attrs struct {
			Name     string `json:"name"`
			Password string `json:"password"`
			Locked   bool   `json:"locked"`
		}
		if err := json.NewDecoder(req.Body).Decode(&attrs); err != nil {
			http.Error(w, fmt.Sprintf("Error decoding request: %v", err), 400)
			return
		}

		if attrs.Name == "" {
			http.Error(w, `Request must include the attribute "name"`, 422)
			return
		}

		user, err := NewUser(attrs.Name, attrs.Password, attrs.Locked)
		if err != nil {
			logger.Error("Failed to hash password", "error", err)
			http.Error(w, fmt.Sprintf("Failed to hash password: %v", err), 500)
			return
		}

		err = store.CreateUser(req.Context(), user)
		if err != nil {
			var dupErr DuplicationError
			if errors.As(err, &dupErr) {
				http.Error(w, err.Error(), 422)
				return
			}
			logger.Error("Failed to create user", "error", err)
			http.Error(w, fmt.Sprintf("Failed to create user: %v", err), 500)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"name": user.Name, "locked": user.Locked})
	})

	r.Delete("/test/users/{name}", func(w http.ResponseWriter, req *http.Request) {
		err := store.DeleteUser(req.Context(), chi.URLParam(req, "name"))
		if errors.Is(err, ErrNotFound) {
			http.NotFound(w, req)
			return
		} else if err != nil {
			logger.Error("Failed to delete user", "error", err)
			http.Error(w, fmt.Sprintf("Failed to delete user: %v", err), 500)
			return
		}

		w.WriteHeader(204)
	})
}
