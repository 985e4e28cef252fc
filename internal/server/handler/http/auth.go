// Package http serves the GlobiFy web pages: accounts, catalog lists, the
// shared feed and profiles.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/atinyakov/globify/internal/middleware"
	"github.com/atinyakov/globify/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AuthService defines the account operations required by AuthHandler.
type AuthService interface {
	// Register creates an unverified account and sends its verification link.
	Register(ctx context.Context, username, email, password string) error
	// Verify redeems a verification token and returns the verified username.
	Verify(ctx context.Context, token string) (string, error)
	// Login returns the user for valid credentials of a verified account.
	Login(ctx context.Context, username, password string) (*models.User, error)
}

// SessionIssuer sets and clears the session cookie.
type SessionIssuer interface {
	Issue(w http.ResponseWriter, username string) error
	Clear(w http.ResponseWriter)
}

// AuthHandler handles registration, verification, login and logout.
type AuthHandler struct {
	AuthService AuthService
	Sessions    SessionIssuer
	Views       *Renderer
	Logger      *zap.Logger
}

func userFrom(r *http.Request) *models.User {
	return middleware.UserFromContext(r.Context())
}

// RegisterForm renders the sign-up form.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.Views.Page(w, http.StatusOK, "register", View{Title: "Sign up", User: userFrom(r)})
}

// Register creates the account from the posted form. Mail delivery happens
// in the background and never fails the request.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.Views.Message(w, r, http.StatusBadRequest, "Invalid request", "The form could not be read.", "/register", "Back")
		return
	}

	email := r.PostFormValue("email")
	err := h.AuthService.Register(r.Context(), r.PostFormValue("username"), email, r.PostFormValue("password"))
	if err != nil {
		h.Views.Fail(w, r, err)
		return
	}

	h.Views.Message(w, r, http.StatusOK, "Almost done!",
		"We sent a confirmation link to "+email+". Check your inbox (and the spam folder) and follow the link to activate your account.",
		"/login", "Log in")
}

// Verify redeems the token from the URL.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if _, err := h.AuthService.Verify(r.Context(), chi.URLParam(r, "token")); err != nil {
		h.Views.Fail(w, r, err)
		return
	}
	h.Views.Message(w, r, http.StatusOK, "Email confirmed", "Your email is confirmed. You can log in now.", "/login", "Log in")
}

// LoginForm renders the login form.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.Views.Page(w, http.StatusOK, "login", View{Title: "Log in", User: userFrom(r)})
}

// Login checks the posted credentials and starts a session. Every failure
// shows the same message; the cause is only logged.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.Views.Message(w, r, http.StatusBadRequest, "Invalid request", "The form could not be read.", "/login", "Back")
		return
	}

	username := r.PostFormValue("username")
	user, err := h.AuthService.Login(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) || errors.Is(err, models.ErrUnverified) {
			h.Logger.Info("login rejected", zap.String("username", username), zap.Error(err))
		}
		h.Views.Fail(w, r, err)
		return
	}

	if err := h.Sessions.Issue(w, user.Username); err != nil {
		h.Views.Fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout clears the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Clear(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
