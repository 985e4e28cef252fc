package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/atinyakov/globify/internal/metrics"
	"github.com/atinyakov/globify/internal/models"
	"github.com/atinyakov/globify/internal/validation"
)

// EntryRepository defines the persistence operations on catalog entries.
// Mutations are scoped by owner and report whether a row matched.
type EntryRepository interface {
	List(ctx context.Context, cat models.Category, ownerID int64, query string) ([]models.Entry, error)
	Get(ctx context.Context, cat models.Category, id, ownerID int64) (*models.Entry, error)
	Create(ctx context.Context, cat models.Category, ownerID int64, in models.EntryInput) (int64, error)
	Update(ctx context.Context, cat models.Category, id, ownerID int64, in models.EntryInput) (bool, error)
	Delete(ctx context.Context, cat models.Category, id, ownerID int64) (bool, error)
	ToggleShare(ctx context.Context, cat models.Category, id, ownerID int64) (bool, error)
}

// CatalogService manages a user's own entries.
type CatalogService struct {
	repo EntryRepository
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(repo EntryRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

func checkAccess(user *models.User, cat models.Category) error {
	if user == nil {
		return models.ErrUnauthenticated
	}
	if !cat.Valid() {
		return fmt.Errorf("%w: unknown category %q", models.ErrInvalidInput, cat)
	}
	return nil
}

func normalizeInput(in models.EntryInput) (models.EntryInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.Link = strings.TrimSpace(in.Link)
	in.ImageURL = strings.TrimSpace(in.ImageURL)

	if math.IsNaN(in.Rating) || math.IsInf(in.Rating, 0) {
		return in, fmt.Errorf("%w: rating must be a finite number", models.ErrInvalidInput)
	}
	if err := validation.Struct(in); err != nil {
		return in, fmt.Errorf("%w: %w", models.ErrInvalidInput, err)
	}
	return in, nil
}

// List returns the user's entries in cat, best rated first. A non-empty query
// filters by title substring, ignoring case.
func (s *CatalogService) List(ctx context.Context, user *models.User, cat models.Category, query string) ([]models.Entry, error) {
	if err := checkAccess(user, cat); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, cat, user.ID, strings.TrimSpace(query))
}

// Get returns one of the user's entries, or models.ErrNotFound.
func (s *CatalogService) Get(ctx context.Context, user *models.User, cat models.Category, id int64) (*models.Entry, error) {
	if err := checkAccess(user, cat); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, cat, id, user.ID)
}

// Create adds an unshared entry and returns its id.
func (s *CatalogService) Create(ctx context.Context, user *models.User, cat models.Category, in models.EntryInput) (int64, error) {
	if err := checkAccess(user, cat); err != nil {
		return 0, err
	}
	in, err := normalizeInput(in)
	if err != nil {
		return 0, err
	}

	id, err := s.repo.Create(ctx, cat, user.ID, in)
	if err != nil {
		return 0, err
	}
	metrics.RecordEntryMutation(string(cat), "create")
	return id, nil
}

// Update replaces the editable fields. Entries the user does not own are
// left untouched without error.
func (s *CatalogService) Update(ctx context.Context, user *models.User, cat models.Category, id int64, in models.EntryInput) error {
	if err := checkAccess(user, cat); err != nil {
		return err
	}
	in, err := normalizeInput(in)
	if err != nil {
		return err
	}

	ok, err := s.repo.Update(ctx, cat, id, user.ID, in)
	if err != nil {
		return err
	}
	if ok {
		metrics.RecordEntryMutation(string(cat), "update")
	}
	return nil
}

// Delete removes the entry if the user owns it.
func (s *CatalogService) Delete(ctx context.Context, user *models.User, cat models.Category, id int64) error {
	if err := checkAccess(user, cat); err != nil {
		return err
	}
	ok, err := s.repo.Delete(ctx, cat, id, user.ID)
	if err != nil {
		return err
	}
	if ok {
		metrics.RecordEntryMutation(string(cat), "delete")
	}
	return nil
}

// ToggleShare flips the shared flag if the user owns the entry.
func (s *CatalogService) ToggleShare(ctx context.Context, user *models.User, cat models.Category, id int64) error {
	if err := checkAccess(user, cat); err != nil {
		return err
	}
	ok, err := s.repo.ToggleShare(ctx, cat, id, user.ID)
	if err != nil {
		return err
	}
	if ok {
		metrics.RecordEntryMutation(string(cat), "share")
	}
	return nil
}
