package http

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/atinyakov/globify/internal/models"
	"github.com/atinyakov/globify/internal/validation"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageNames lists every template rendered inside layout.html.
var pageNames = []string{"index", "register", "login", "profile", "list", "edit", "message", "contacts"}

// loginFailedMessage is shown for every failed login, whatever the cause.
const loginFailedMessage = "Invalid username, password, or unverified account"

// View is the data passed to every page template.
type View struct {
	Title string
	// User is the signed-in user, nil for anonymous pages.
	User *models.User

	// Message page.
	Message  string
	Link     string
	LinkText string

	Dashboard  *models.Dashboard
	Category   models.Category
	Categories []models.Category
	Entries    []models.Entry
	Entry      *models.Entry
	Query      string
}

// Renderer executes the embedded page templates.
type Renderer struct {
	pages  map[string]*template.Template
	logger *zap.Logger
}

var templateFuncs = template.FuncMap{
	"rating": func(f float64) string { return fmt.Sprintf("%g", f) },
}

// NewRenderer parses the embedded templates.
func NewRenderer(logger *zap.Logger) (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages, logger: logger}, nil
}

// Page renders the named page with status.
func (v *Renderer) Page(w http.ResponseWriter, status int, name string, data View) {
	t, ok := v.pages[name]
	if !ok {
		v.logger.Error("unknown template", zap.String("template", name))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		v.logger.Error("render template", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Message renders a short message page with a single link.
func (v *Renderer) Message(w http.ResponseWriter, r *http.Request, status int, title, message, link, linkText string) {
	v.Page(w, status, "message", View{
		Title:    title,
		User:     userFrom(r),
		Message:  message,
		Link:     link,
		LinkText: linkText,
	})
}

// Fail maps err onto a redirect or message page.
func (v *Renderer) Fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	case errors.Is(err, models.ErrInvalidUpload):
		v.Message(w, r, http.StatusBadRequest, "Upload rejected",
			"Only images can be uploaded (.jpg, .jpeg, .png, .webp).", "/profile", "Back to profile")
	case errors.Is(err, models.ErrInvalidInput):
		v.Message(w, r, http.StatusBadRequest, "Invalid input", inputMessage(err), backLink(r), "Go back")
	case errors.Is(err, models.ErrConflict):
		v.Message(w, r, http.StatusConflict, "Registration failed",
			"A user with this username or email already exists.", "/register", "Back")
	case errors.Is(err, models.ErrInvalidCredentials), errors.Is(err, models.ErrUnverified):
		v.Message(w, r, http.StatusUnauthorized, "Login failed", loginFailedMessage, "/login", "Try again")
	case errors.Is(err, models.ErrInvalidToken):
		v.Message(w, r, http.StatusBadRequest, "Verification failed",
			"Invalid link or the account is already verified.", "/login", "Log in")
	case errors.Is(err, models.ErrNotFound):
		v.Message(w, r, http.StatusNotFound, "Not found", "Nothing here.", "/", "Home")
	default:
		v.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		v.Message(w, r, http.StatusInternalServerError, "Error", "internal error", "/", "Home")
	}
}

func inputMessage(err error) string {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return verr.Error()
	}
	return err.Error()
}

// backLink returns a page to return to after a rejected form post. Forms
// posted to /add_{category} go back to the category list; the others have a
// GET route on the same path.
func backLink(r *http.Request) string {
	if name, ok := strings.CutPrefix(r.URL.Path, "/add_"); ok {
		if cat, err := models.ParseCategory(name); err == nil {
			return "/" + cat.ListPath()
		}
	}
	if r.URL.Path == "" {
		return "/"
	}
	return r.URL.Path
}
