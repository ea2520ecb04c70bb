package server

import (
	"errors"
	"net/http"

	"todo-webapp/internal/service"
)

func (s *Server) showLoginHandler(w http.ResponseWriter, r *http.Request) {
	if s.sessions.UserIDFromRequest(r) != 0 {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"flash": popFlash(w, r),
	})
}

func (s *Server) postLoginHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	req := service.LoginRequest{
		Email:    formValue(r, "email"),
		Password: r.FormValue("password"),
	}

	user, err := s.authService.Login(r.Context(), req)
	if err != nil {
		old := map[string]string{"email": req.Email}
		var ve *service.ValidationError
		switch {
		case errors.As(err, &ve):
			respondWithValidationErrors(w, ve.Fields, old)
		case errors.Is(err, service.ErrInvalidCredentials):
			// Generic and attributed to email: never reveal which field
			// was wrong.
			respondWithValidationErrors(w, map[string]string{
				"email": "These credentials do not match our records.",
			}, old)
		default:
			s.logger.WithError(err).Error("login failed")
			respondWithError(w, http.StatusInternalServerError, "Failed to log in")
		}
		return
	}

	s.establishSession(w, r, user.ID)
}

func (s *Server) showRegisterHandler(w http.ResponseWriter, r *http.Request) {
	if s.sessions.UserIDFromRequest(r) != 0 {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"flash": popFlash(w, r),
	})
}

func (s *Server) postRegisterHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	req := service.RegisterRequest{
		Name:                 formValue(r, "name"),
		Email:                formValue(r, "email"),
		Password:             r.FormValue("password"),
		PasswordConfirmation: r.FormValue("password_confirmation"),
	}

	user, err := s.authService.Register(r.Context(), req)
	if err != nil {
		old := map[string]string{"name": req.Name, "email": req.Email}
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			respondWithValidationErrors(w, ve.Fields, old)
			return
		}
		s.logger.WithError(err).Error("registration failed")
		respondWithError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	// Auto-login right after registration.
	s.establishSession(w, r, user.ID)
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	s.sessions.ClearCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	user, err := s.authService.GetUser(r.Context(), userID)
	if err != nil {
		s.logger.WithError(err).Error("loading dashboard user")
		respondWithError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	result, err := s.todoService.ListTodos(r.Context(), userID, service.ListTodosParams{})
	if err != nil {
		s.logger.WithError(err).Error("loading dashboard stats")
		respondWithError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"user":  user,
		"stats": result.Stats,
		"flash": popFlash(w, r),
	})
}

// establishSession issues a fresh token and sends the caller on to the
// dashboard. Tokens are never reused across logins.
func (s *Server) establishSession(w http.ResponseWriter, r *http.Request, userID uint) {
	token, err := s.sessions.Sign(userID)
	if err != nil {
		s.logger.WithError(err).Error("signing session token")
		respondWithError(w, http.StatusInternalServerError, "Failed to establish session")
		return
	}
	s.sessions.SetCookie(w, token)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
