package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/atinyakov/globify/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func setupUserMock(t *testing.T) (*PostgresUserRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresUserRepository(sqlx.NewDb(db, "postgres"))
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

const (
	existsQuery = `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 OR email = $2)`
	insertQuery = `INSERT INTO users (username, email, hashed_password, is_verified, verify_token)`
)

func newUser() *models.User {
	return &models.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		VerifyToken:  "tok-1",
	}
}

func TestCreateUser_Success(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(existsQuery)).
		WithArgs("alice", "alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(insertQuery)).
		WithArgs("alice", "alice@example.com", "hash", "tok-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectCommit()

	id, err := repo.CreateUser(context.Background(), newUser())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 7 {
		t.Errorf("expected id 7, got %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateUser_ExistingIsConflict(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(existsQuery)).
		WithArgs("alice", "alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := repo.CreateUser(context.Background(), newUser())
	if !errors.Is(err, models.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateUser_UniqueViolationIsConflict(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(existsQuery)).
		WithArgs("alice", "alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(insertQuery)).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.CreateUser(context.Background(), newUser())
	if !errors.Is(err, models.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateUser_InsertError(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(existsQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(insertQuery)).
		WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	_, err := repo.CreateUser(context.Background(), newUser())
	if err == nil || errors.Is(err, models.ErrConflict) {
		t.Fatalf("expected plain insert error, got %v", err)
	}
	if !regexp.MustCompile(`CreateUser insert`).MatchString(err.Error()) {
		t.Errorf("expected wrapped error, got %v", err)
	}
}

func TestGetByUsername(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE username = $1`)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "email", "hashed_password", "is_verified",
			"verify_token", "avatar_url", "bio", "created_at",
		}).AddRow(int64(1), "alice", "alice@example.com", "hash", true, "", "/a.png", "hi", created))

	u, err := repo.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != 1 || u.Email != "alice@example.com" || !u.Verified || u.AvatarURL != "/a.png" || !u.CreatedAt.Equal(created) {
		t.Errorf("unexpected user: %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetByUsername_NotFound(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE username = $1`)).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByUsername(context.Background(), "ghost")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVerifyByToken_Success(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, username FROM users WHERE verify_token = $1 FOR UPDATE`)).
		WithArgs("tok-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(int64(3), "alice"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET is_verified = TRUE, verify_token = '' WHERE id = $1`)).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	username, err := repo.VerifyByToken(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if username != "alice" {
		t.Errorf("expected alice, got %q", username)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestVerifyByToken_Unknown(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, username FROM users WHERE verify_token = $1 FOR UPDATE`)).
		WithArgs("used").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}))
	mock.ExpectRollback()

	_, err := repo.VerifyByToken(context.Background(), "used")
	if !errors.Is(err, models.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestVerifyByToken_EmptyTokenSkipsDB(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	_, err := repo.VerifyByToken(context.Background(), "")
	if !errors.Is(err, models.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected sql calls: %v", err)
	}
}

func TestUpdateProfile_WithAvatar(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT avatar_url FROM users WHERE id = $1 FOR UPDATE`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"avatar_url"}).AddRow("/old.png"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET bio = $1, avatar_url = $2 WHERE id = $3`)).
		WithArgs("new bio", "/new.png", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	avatar := "/new.png"
	prev, err := repo.UpdateProfile(context.Background(), 5, "new bio", &avatar)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prev != "/old.png" {
		t.Errorf("expected previous avatar /old.png, got %q", prev)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUpdateProfile_BioOnly(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT avatar_url FROM users WHERE id = $1 FOR UPDATE`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"avatar_url"}).AddRow(""))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET bio = $1 WHERE id = $2`)).
		WithArgs("only bio", int64(5)).
		WillReturnError(errors.New("update failed"))
	mock.ExpectRollback()

	_, err := repo.UpdateProfile(context.Background(), 5, "only bio", nil)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
