package http

import (
	"context"
	"net/http"
	"time"

	"github.com/atinyakov/globify/internal/models"
)

// FeedService builds the dashboard shown on the landing page.
type FeedService interface {
	Dashboard(ctx context.Context, user *models.User) (*models.Dashboard, error)
}

// Pinger checks that a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HomeHandler serves the landing page, the contacts page and /healthz.
type HomeHandler struct {
	Feed  FeedService
	Views *Renderer
	DB    Pinger
}

// Index renders the dashboard for signed-in users and the landing page
// otherwise.
func (h *HomeHandler) Index(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if user == nil {
		h.Views.Page(w, http.StatusOK, "index", View{})
		return
	}

	d, err := h.Feed.Dashboard(r.Context(), user)
	if err != nil {
		h.Views.Fail(w, r, err)
		return
	}
	h.Views.Page(w, http.StatusOK, "index", View{User: user, Dashboard: d})
}

// Contacts renders the static contacts page.
func (h *HomeHandler) Contacts(w http.ResponseWriter, r *http.Request) {
	h.Views.Page(w, http.StatusOK, "contacts", View{Title: "Contacts", User: userFrom(r)})
}

// Healthz reports 200 when the database answers a ping.
func (h *HomeHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unavailable\n"))
			return
		}
	}
	_, _ = w.Write([]byte("ok\n"))
}
