package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type contextKey string

const userIDKey contextKey = "userID"

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})

	r.Get("/health", s.healthHandler)

	r.Get("/login", s.showLoginHandler)
	r.Post("/login", s.postLoginHandler)
	r.Get("/register", s.showRegisterHandler)
	r.Post("/register", s.postRegisterHandler)

	// Uploaded blobs (todo covers) are served straight off the storage dir.
	fileServer := http.StripPrefix(s.storageBaseURL, http.FileServer(http.Dir(s.storageDir)))
	r.Get(s.storageBaseURL+"/*", fileServer.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Post("/logout", s.logoutHandler)
		r.Get("/dashboard", s.dashboardHandler)

		r.Route("/todos", func(r chi.Router) {
			r.Get("/", s.listTodosHandler)
			r.Get("/create", s.createFormHandler)
			r.Post("/", s.createTodoHandler)
			r.Get("/{id}/edit", s.editFormHandler)
			r.Put("/{id}", s.updateTodoHandler)
			r.Delete("/{id}", s.deleteTodoHandler)
		})
	})

	return r
}

// requireAuth gates every todo endpoint: anonymous requests are bounced
// to the login page, valid sessions get the user id put on the context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := s.sessions.UserIDFromRequest(r)
		if userID == 0 {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUserID(r *http.Request) uint {
	id, _ := r.Context().Value(userIDKey).(uint)
	return id
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthStats := s.db.Health()
	if status, ok := healthStats["status"]; ok && status == "down" {
		respondWithJSON(w, http.StatusServiceUnavailable, healthStats)
		return
	}
	respondWithJSON(w, http.StatusOK, healthStats)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithValidationErrors renders field-level messages alongside the
// submitted input (minus anything secret) so the form can re-render.
func respondWithValidationErrors(w http.ResponseWriter, fields map[string]string, old map[string]string) {
	respondWithJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"errors": fields,
		"old":    old,
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal server error preparing response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}
