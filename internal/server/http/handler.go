package http

import (
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, status, msg)
}

func (s *HTTPServer) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Message: "server running"})
}

func (s *HTTPServer) register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	if _, err := s.users.Register(r.Context(), req); err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{Message: "user registered successfully"})
}

func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	token, err := s.users.Login(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (s *HTTPServer) me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (s *HTTPServer) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := s.users.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *HTTPServer) createUser(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	u, err := s.users.Create(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{Message: "user created", User: u})
}

func (s *HTTPServer) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *HTTPServer) updateUser(w http.ResponseWriter, r *http.Request) {
	var req services.UpdateRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	u, err := s.users.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{Message: "user updated", User: u})
}

func (s *HTTPServer) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "user deleted"})
}
