package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appauth "github.com/bryanwahyu/copyguard/internal/application/auth"
	"github.com/bryanwahyu/copyguard/internal/middleware"
)

// POST /api/auth/register
func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) error {
	var body appauth.Credentials
	if err := decode(req, &body); err != nil {
		return err
	}
	body.FullName = middleware.SanitizeString(body.FullName)

	tok, err := r.Auth.Register(req.Context(), body)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, tok)
}

// POST /api/auth/login
func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	tok, err := r.Auth.Login(req.Context(), body.Email, body.Password)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, tok)
}

// GET /api/auth/me
func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, currentUser(req))
}

// PUT /api/auth/me
func (r *Router) handleUpdateMe(w http.ResponseWriter, req *http.Request) error {
	var body appauth.ProfileUpdate
	if err := decode(req, &body); err != nil {
		return err
	}
	u, err := r.Auth.UpdateProfile(req.Context(), currentUser(req), body)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, u)
}

// GET /api/auth/users
func (r *Router) handleListUsers(w http.ResponseWriter, req *http.Request) error {
	list, err := r.Auth.ListUsers(req.Context(), currentUser(req))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /api/auth/users
func (r *Router) handleCreateUser(w http.ResponseWriter, req *http.Request) error {
	var body appauth.Credentials
	if err := decode(req, &body); err != nil {
		return err
	}
	body.FullName = middleware.SanitizeString(body.FullName)

	u, err := r.Auth.CreateUser(req.Context(), currentUser(req), body)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, u)
}

// PUT /api/auth/users/{id}
func (r *Router) handleUpdateUser(w http.ResponseWriter, req *http.Request) error {
	var body appauth.ProfileUpdate
	if err := decode(req, &body); err != nil {
		return err
	}
	u, err := r.Auth.UpdateUser(req.Context(), currentUser(req), chi.URLParam(req, "id"), body)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, u)
}

// DELETE /api/auth/users/{id}
func (r *Router) handleDeactivateUser(w http.ResponseWriter, req *http.Request) error {
	if err := r.Auth.Deactivate(req.Context(), currentUser(req), chi.URLParam(req, "id")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
