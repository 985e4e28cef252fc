package service

import (
	"context"

	"github.com/atinyakov/globify/internal/models"
)

// FeedRepository reads shared entries and counts.
type FeedRepository interface {
	Count(ctx context.Context, cat models.Category, ownerID int64) (int, error)
	Pinned(ctx context.Context, cat models.Category, ownerID int64) ([]models.Entry, error)
	Global(ctx context.Context, cat models.Category, viewerID int64) ([]models.FeedItem, error)
}

// FeedService composes what a viewer sees of shared entries.
type FeedService struct {
	repo FeedRepository
}

// NewFeedService constructs a FeedService.
func NewFeedService(repo FeedRepository) *FeedService {
	return &FeedService{repo: repo}
}

// Pinned returns the viewer's own shared entries.
func (s *FeedService) Pinned(ctx context.Context, user *models.User, cat models.Category) ([]models.Entry, error) {
	if err := checkAccess(user, cat); err != nil {
		return nil, err
	}
	return s.repo.Pinned(ctx, cat, user.ID)
}

// GlobalFeed returns shared entries of every other user.
func (s *FeedService) GlobalFeed(ctx context.Context, user *models.User, cat models.Category) ([]models.FeedItem, error) {
	if err := checkAccess(user, cat); err != nil {
		return nil, err
	}
	return s.repo.Global(ctx, cat, user.ID)
}

// Count returns how many entries the viewer owns in cat.
func (s *FeedService) Count(ctx context.Context, user *models.User, cat models.Category) (int, error) {
	if err := checkAccess(user, cat); err != nil {
		return 0, err
	}
	return s.repo.Count(ctx, cat, user.ID)
}

// Dashboard builds the landing page for a signed-in user.
func (s *FeedService) Dashboard(ctx context.Context, user *models.User) (*models.Dashboard, error) {
	if user == nil {
		return nil, models.ErrUnauthenticated
	}

	d := &models.Dashboard{Username: user.Username}
	for _, cat := range models.Categories() {
		count, err := s.Count(ctx, user, cat)
		if err != nil {
			return nil, err
		}
		pinned, err := s.Pinned(ctx, user, cat)
		if err != nil {
			return nil, err
		}
		global, err := s.GlobalFeed(ctx, user, cat)
		if err != nil {
			return nil, err
		}
		d.Sections = append(d.Sections, models.CategorySection{
			Category: cat,
			Count:    count,
			Pinned:   pinned,
			Global:   global,
		})
	}
	return d, nil
}
