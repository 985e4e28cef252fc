package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/globify/internal/models"
	"github.com/jmoiron/sqlx"
)

const entryColumns = `id, title, author, rating, link, image_url, is_shared, owner_id`

// PostgresEntryRepository implements catalog entry persistence on PostgreSQL.
// Every category lives in its own table with an identical column set; all
// mutating statements are scoped by owner_id so a foreign or missing row
// is indistinguishable from a no-op.
type PostgresEntryRepository struct {
	// DB is the database handle for executing queries.
	DB *sqlx.DB
}

// NewPostgresEntryRepository creates a new PostgresEntryRepository.
func NewPostgresEntryRepository(db *sqlx.DB) *PostgresEntryRepository {
	return &PostgresEntryRepository{DB: db}
}

func table(cat models.Category) (string, error) {
	t := cat.Table()
	if t == "" {
		return "", fmt.Errorf("unknown category %q", cat)
	}
	return t, nil
}

// List returns the owner's entries of cat, best rated first. A non-empty
// query keeps only entries whose title contains it, ignoring case.
//
//	ctx:     context for cancellation and deadlines
//	cat:     category to list
//	ownerID: identifier of the owning user
//	query:   optional title filter
func (r *PostgresEntryRepository) List(ctx context.Context, cat models.Category, ownerID int64, query string) ([]models.Entry, error) {
	t, err := table(cat)
	if err != nil {
		return nil, err
	}

	var entries []models.Entry
	if query == "" {
		err = r.DB.SelectContext(ctx, &entries, `
			SELECT `+entryColumns+` FROM `+t+`
			WHERE owner_id = $1
			ORDER BY rating DESC, id ASC
		`, ownerID)
	} else {
		err = r.DB.SelectContext(ctx, &entries, `
			SELECT `+entryColumns+` FROM `+t+`
			WHERE owner_id = $1 AND title ILIKE $2
			ORDER BY rating DESC, id ASC
		`, ownerID, "%"+escapeLike(query)+"%")
	}
	if err != nil {
		return nil, fmt.Errorf("List %s: %w", t, err)
	}
	return withCategory(entries, cat), nil
}

// Get returns a single entry by id if it belongs to ownerID,
// or models.ErrNotFound.
func (r *PostgresEntryRepository) Get(ctx context.Context, cat models.Category, id, ownerID int64) (*models.Entry, error) {
	t, err := table(cat)
	if err != nil {
		return nil, err
	}

	var e models.Entry
	err = r.DB.GetContext(ctx, &e, `
		SELECT `+entryColumns+` FROM `+t+` WHERE id = $1 AND owner_id = $2
	`, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get %s: %w", t, err)
	}
	e.Category = cat
	return &e, nil
}

// Create inserts an unshared entry owned by ownerID and returns its ID.
func (r *PostgresEntryRepository) Create(ctx context.Context, cat models.Category, ownerID int64, in models.EntryInput) (int64, error) {
	t, err := table(cat)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.DB.GetContext(ctx, &id, `
		INSERT INTO `+t+` (title, author, rating, link, image_url, owner_id, is_shared)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		RETURNING id
	`, in.Title, in.Author, in.Rating, in.Link, in.ImageURL, ownerID)
	if err != nil {
		return 0, fmt.Errorf("Create %s: %w", t, err)
	}
	return id, nil
}

// Update overwrites the editable fields of the owner's entry.
// It reports whether a row matched.
func (r *PostgresEntryRepository) Update(ctx context.Context, cat models.Category, id, ownerID int64, in models.EntryInput) (bool, error) {
	t, err := table(cat)
	if err != nil {
		return false, err
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE `+t+` SET title = $1, author = $2, rating = $3, link = $4, image_url = $5
		WHERE id = $6 AND owner_id = $7
	`, in.Title, in.Author, in.Rating, in.Link, in.ImageURL, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("Update %s: %w", t, err)
	}
	return affected(res)
}

// Delete removes the owner's entry. It reports whether a row matched.
func (r *PostgresEntryRepository) Delete(ctx context.Context, cat models.Category, id, ownerID int64) (bool, error) {
	t, err := table(cat)
	if err != nil {
		return false, err
	}

	res, err := r.DB.ExecContext(ctx, `DELETE FROM `+t+` WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("Delete %s: %w", t, err)
	}
	return affected(res)
}

// ToggleShare flips the shared flag of the owner's entry.
// It reports whether a row matched.
func (r *PostgresEntryRepository) ToggleShare(ctx context.Context, cat models.Category, id, ownerID int64) (bool, error) {
	t, err := table(cat)
	if err != nil {
		return false, err
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE `+t+` SET is_shared = NOT is_shared WHERE id = $1 AND owner_id = $2
	`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("ToggleShare %s: %w", t, err)
	}
	return affected(res)
}

// Count returns how many entries of cat the owner has, shared or not.
func (r *PostgresEntryRepository) Count(ctx context.Context, cat models.Category, ownerID int64) (int, error) {
	t, err := table(cat)
	if err != nil {
		return 0, err
	}

	var n int
	if err := r.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM `+t+` WHERE owner_id = $1`, ownerID); err != nil {
		return 0, fmt.Errorf("Count %s: %w", t, err)
	}
	return n, nil
}

// Pinned returns the owner's shared entries, best rated first.
func (r *PostgresEntryRepository) Pinned(ctx context.Context, cat models.Category, ownerID int64) ([]models.Entry, error) {
	t, err := table(cat)
	if err != nil {
		return nil, err
	}

	var entries []models.Entry
	err = r.DB.SelectContext(ctx, &entries, `
		SELECT `+entryColumns+` FROM `+t+`
		WHERE owner_id = $1 AND is_shared = TRUE
		ORDER BY rating DESC, id ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("Pinned %s: %w", t, err)
	}
	return withCategory(entries, cat), nil
}

// Global returns shared entries of everyone except viewerID together with
// their owners' usernames, best rated first.
func (r *PostgresEntryRepository) Global(ctx context.Context, cat models.Category, viewerID int64) ([]models.FeedItem, error) {
	t, err := table(cat)
	if err != nil {
		return nil, err
	}

	var items []models.FeedItem
	err = r.DB.SelectContext(ctx, &items, `
		SELECT e.id, e.title, e.author, e.rating, e.link, e.image_url, e.is_shared, e.owner_id,
		       u.username AS owner_name
		FROM `+t+` e
		JOIN users u ON u.id = e.owner_id
		WHERE e.is_shared = TRUE AND e.owner_id <> $1
		ORDER BY e.rating DESC, e.id ASC
	`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("Global %s: %w", t, err)
	}
	for i := range items {
		items[i].Category = cat
	}
	return items, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func withCategory(entries []models.Entry, cat models.Category) []models.Entry {
	for i := range entries {
		entries[i].Category = cat
	}
	return entries
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
