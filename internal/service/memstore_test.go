package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/atinyakov/globify/internal/models"
)

// memEntries is an in-memory EntryRepository and FeedRepository with the
// same ownership and ordering rules as the Postgres repository.
type memEntries struct {
	mu     sync.Mutex
	nextID int64
	rows   map[models.Category][]models.Entry
	names  map[int64]string
}

func newMemEntries(names map[int64]string) *memEntries {
	return &memEntries{rows: map[models.Category][]models.Entry{}, names: names}
}

func sortEntries(es []models.Entry) {
	sort.SliceStable(es, func(i, j int) bool {
		if es[i].Rating != es[j].Rating {
			return es[i].Rating > es[j].Rating
		}
		return es[i].ID < es[j].ID
	})
}

func (m *memEntries) find(cat models.Category, id, ownerID int64) *models.Entry {
	for i := range m.rows[cat] {
		e := &m.rows[cat][i]
		if e.ID == id && e.OwnerID == ownerID {
			return e
		}
	}
	return nil
}

func (m *memEntries) List(ctx context.Context, cat models.Category, ownerID int64, query string) ([]models.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Entry
	for _, e := range m.rows[cat] {
		if e.OwnerID != ownerID {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(e.Title), strings.ToLower(query)) {
			continue
		}
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

func (m *memEntries) Get(ctx context.Context, cat models.Category, id, ownerID int64) (*models.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.find(cat, id, ownerID)
	if e == nil {
		return nil, models.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memEntries) Create(ctx context.Context, cat models.Category, ownerID int64, in models.EntryInput) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.rows[cat] = append(m.rows[cat], models.Entry{
		ID: m.nextID, Category: cat, Title: in.Title, Author: in.Author,
		Rating: in.Rating, Link: in.Link, ImageURL: in.ImageURL, OwnerID: ownerID,
	})
	return m.nextID, nil
}

func (m *memEntries) Update(ctx context.Context, cat models.Category, id, ownerID int64, in models.EntryInput) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.find(cat, id, ownerID)
	if e == nil {
		return false, nil
	}
	e.Title, e.Author, e.Rating, e.Link, e.ImageURL = in.Title, in.Author, in.Rating, in.Link, in.ImageURL
	return true, nil
}

func (m *memEntries) Delete(ctx context.Context, cat models.Category, id, ownerID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.rows[cat]
	for i, e := range rows {
		if e.ID == id && e.OwnerID == ownerID {
			m.rows[cat] = append(rows[:i:i], rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memEntries) ToggleShare(ctx context.Context, cat models.Category, id, ownerID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.find(cat, id, ownerID)
	if e == nil {
		return false, nil
	}
	e.Shared = !e.Shared
	return true, nil
}

func (m *memEntries) Count(ctx context.Context, cat models.Category, ownerID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.rows[cat] {
		if e.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (m *memEntries) Pinned(ctx context.Context, cat models.Category, ownerID int64) ([]models.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Entry
	for _, e := range m.rows[cat] {
		if e.Shared && e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

func (m *memEntries) Global(ctx context.Context, cat models.Category, viewerID int64) ([]models.FeedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var es []models.Entry
	for _, e := range m.rows[cat] {
		if e.Shared && e.OwnerID != viewerID {
			es = append(es, e)
		}
	}
	sortEntries(es)
	out := make([]models.FeedItem, 0, len(es))
	for _, e := range es {
		out = append(out, models.FeedItem{Entry: e, OwnerName: m.names[e.OwnerID]})
	}
	return out, nil
}
