package http

import (
	"net/http"
	"time"

	"github.com/atinyakov/globify/internal/middleware"
	"github.com/atinyakov/globify/internal/models"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterConfig carries the handlers and session plumbing mounted by
// NewRouter.
type RouterConfig struct {
	Auth    *AuthHandler
	Catalog *CatalogHandler
	Profile *ProfileHandler
	Home    *HomeHandler

	Sessions middleware.SessionReader
	Users    middleware.UserResolver

	// StaticDir is served under /static/.
	StaticDir string
	// UploadDir, when set, is served under /static/uploads/.
	UploadDir string

	// AuthRateLimit caps login and registration posts per IP per minute.
	// Zero disables the limit.
	AuthRateLimit int

	Logger *zap.Logger
}

// NewRouter constructs the GlobiFy HTTP handler.
//
// Middleware chain (applied in order):
//  1. RequestID, RealIP, Recoverer
//  2. WithRequestLogging(logger)
//  3. Metrics
//  4. SecurityHeaders
//  5. SessionAuth: resolves the session cookie into the request user
//
// Catalog routes are registered for every category; everything except the
// landing, auth, contacts, static, metrics and health routes requires a
// signed-in user.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(cfg.Logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.SessionAuth(cfg.Sessions, cfg.Users, cfg.Logger))

	// Public pages
	r.Get("/", cfg.Home.Index)
	r.Get("/contacts", cfg.Home.Contacts)
	r.Get("/healthz", cfg.Home.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/register", cfg.Auth.RegisterForm)
	r.Get("/login", cfg.Auth.LoginForm)
	r.Get("/logout", cfg.Auth.Logout)
	r.Get("/verify/{token}", cfg.Auth.Verify)

	// Credential posts are rate limited per client IP
	r.Group(func(r chi.Router) {
		if cfg.AuthRateLimit > 0 {
			r.Use(httprate.LimitByIP(cfg.AuthRateLimit, time.Minute))
		}
		r.Post("/register", cfg.Auth.Register)
		r.Post("/login", cfg.Auth.Login)
	})

	// Protected group: requires a signed-in user
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)

		r.Get("/profile", cfg.Profile.Show)
		r.Post("/profile", cfg.Profile.Update)

		for _, cat := range models.Categories() {
			slug := string(cat)
			r.Get("/"+cat.ListPath(), cfg.Catalog.List(cat))
			r.Post("/add_"+slug, cfg.Catalog.Add(cat))
			r.Get("/delete_"+slug+"/{id}", cfg.Catalog.Delete(cat))
			r.Get("/share_"+slug+"/{id}", cfg.Catalog.Share(cat))
			r.Get("/edit_"+slug+"/{id}", cfg.Catalog.EditForm(cat))
			r.Post("/edit_"+slug+"/{id}", cfg.Catalog.Edit(cat))
		}
	})

	if cfg.UploadDir != "" {
		r.Handle("/static/uploads/*", http.StripPrefix("/static/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))
	}
	if cfg.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))
	}

	return r
}
