package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/atinyakov/globify/internal/models"
	"github.com/go-chi/chi/v5"
)

// CatalogService defines the entry operations required by CatalogHandler.
type CatalogService interface {
	List(ctx context.Context, user *models.User, cat models.Category, query string) ([]models.Entry, error)
	Get(ctx context.Context, user *models.User, cat models.Category, id int64) (*models.Entry, error)
	Create(ctx context.Context, user *models.User, cat models.Category, in models.EntryInput) (int64, error)
	Update(ctx context.Context, user *models.User, cat models.Category, id int64, in models.EntryInput) error
	Delete(ctx context.Context, user *models.User, cat models.Category, id int64) error
	ToggleShare(ctx context.Context, user *models.User, cat models.Category, id int64) error
}

// CatalogHandler serves the per-category list, add, edit, share and delete
// routes. Each method returns the handler for one category.
type CatalogHandler struct {
	Catalog CatalogService
	Views   *Renderer
}

func listURL(cat models.Category) string {
	return "/" + cat.ListPath()
}

// parseEntryForm reads the entry fields from a posted form.
func parseEntryForm(r *http.Request) (models.EntryInput, error) {
	if err := r.ParseForm(); err != nil {
		return models.EntryInput{}, fmt.Errorf("%w: %w", models.ErrInvalidInput, err)
	}
	rating, err := strconv.ParseFloat(strings.TrimSpace(r.PostFormValue("rating")), 64)
	if err != nil {
		return models.EntryInput{}, fmt.Errorf("%w: rating must be a number", models.ErrInvalidInput)
	}
	return models.EntryInput{
		Title:    r.PostFormValue("title"),
		Author:   r.PostFormValue("author"),
		Rating:   rating,
		Link:     r.PostFormValue("link"),
		ImageURL: r.PostFormValue("image_url"),
	}, nil
}

// entryID parses the {id} URL parameter. A malformed id is treated like a
// missing entry.
func entryID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// List renders the user's entries, optionally filtered by ?q=.
func (h *CatalogHandler) List(cat models.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		entries, err := h.Catalog.List(r.Context(), userFrom(r), cat, q)
		if err != nil {
			h.Views.Fail(w, r, err)
			return
		}
		h.Views.Page(w, http.StatusOK, "list", View{
			Title:    cat.Label(),
			User:     userFrom(r),
			Category: cat,
			Entries:  entries,
			Query:    q,
		})
	}
}

// Add creates an entry from the posted form.
func (h *CatalogHandler) Add(cat models.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := parseEntryForm(r)
		if err != nil {
			h.Views.Fail(w, r, err)
			return
		}
		if _, err := h.Catalog.Create(r.Context(), userFrom(r), cat, in); err != nil {
			h.Views.Fail(w, r, err)
			return
		}
		http.Redirect(w, r, listURL(cat), http.StatusSeeOther)
	}
}

// Delete removes the entry and returns to the list.
func (h *CatalogHandler) Delete(cat models.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id, ok := entryID(r); ok {
			if err := h.Catalog.Delete(r.Context(), userFrom(r), cat, id); err != nil {
				h.Views.Fail(w, r, err)
				return
			}
		}
		http.Redirect(w, r, listURL(cat), http.StatusSeeOther)
	}
}

// Share toggles the shared flag and returns to the list.
func (h *CatalogHandler) Share(cat models.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id, ok := entryID(r); ok {
			if err := h.Catalog.ToggleShare(r.Context(), userFrom(r), cat, id); err != nil {
				h.Views.Fail(w, r, err)
				return
			}
		}
		http.Redirect(w, r, listURL(cat), http.StatusSeeOther)
	}
}

// EditForm renders the edit form. Entries that do not exist or belong to
// someone else redirect to the list.
func (h *CatalogHandler) EditForm(cat models.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := entryID(r)
		if !ok {
			http.Redirect(w, r, listURL(cat), http.StatusSeeOther)
			return
		}
		entry, err := h.Catalog.Get(r.Context(), userFrom(r), cat, id)
		if errors.Is(err, models.ErrNotFound) {
			http.Redirect(w, r, listURL(cat), http.StatusSeeOther)
			return
		}
		if err != nil {
			h.Views.Fail(w, r, err)
			return
		}
		h.Views.Page(w, http.StatusOK, "edit", View{
			Title:    "Edit",
			User:     userFrom(r),
			Category: cat,
			Entry:    entry,
		})
	}
}

// Edit applies the posted form and returns to the list.
func (h *CatalogHandler) Edit(cat models.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := entryID(r)
		if !ok {
			http.Redirect(w, r, listURL(cat), http.StatusSeeOther)
			return
		}
		in, err := parseEntryForm(r)
		if err != nil {
			h.Views.Fail(w, r, err)
			return
		}
		if err := h.Catalog.Update(r.Context(), userFrom(r), cat, id, in); err != nil {
			h.Views.Fail(w, r, err)
			return
		}
		http.Redirect(w, r, listURL(cat), http.StatusSeeOther)
	}
}
