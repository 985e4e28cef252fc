package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/atinyakov/globify/internal/models"
	"github.com/atinyakov/globify/internal/service"
)

// MaxAvatarBytes caps the profile form body.
const MaxAvatarBytes = 5 << 20

// ProfileService defines the profile update required by ProfileHandler.
type ProfileService interface {
	UpdateProfile(ctx context.Context, user *models.User, bio string, upload *service.Upload) error
}

// ProfileHandler shows and updates the signed-in user's profile.
type ProfileHandler struct {
	Profiles ProfileService
	Views    *Renderer
}

// Show renders the profile page.
func (h *ProfileHandler) Show(w http.ResponseWriter, r *http.Request) {
	h.Views.Page(w, http.StatusOK, "profile", View{Title: "Profile", User: userFrom(r)})
}

// Update saves the bio and the optional avatar_file upload.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxAvatarBytes+1<<20)
	if err := r.ParseMultipartForm(MaxAvatarBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.Views.Message(w, r, http.StatusBadRequest, "Upload rejected",
			"The form could not be read or the file is too large (5 MB max).", "/profile", "Back to profile")
		return
	}

	var upload *service.Upload
	file, header, err := r.FormFile("avatar_file")
	switch {
	case err == nil:
		defer func() { _ = file.Close() }()
		if header.Filename != "" {
			upload = &service.Upload{Filename: header.Filename, Reader: file}
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		h.Views.Fail(w, r, err)
		return
	}

	if err := h.Profiles.UpdateProfile(r.Context(), userFrom(r), r.FormValue("bio"), upload); err != nil {
		h.Views.Fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}
