package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atinyakov/globify/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// dummyHandler is a placeholder that records if it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

type fakeSessions struct {
	username string
}

func (f fakeSessions) Username(r *http.Request) (string, bool) {
	return f.username, f.username != ""
}

type fakeResolver struct {
	users map[string]*models.User
	err   error
	calls int
}

func (f *fakeResolver) Resolve(ctx context.Context, username string) (*models.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.users[username], nil
}

func TestSessionAuth(t *testing.T) {
	alice := &models.User{ID: 1, Username: "alice"}

	tests := []struct {
		name      string
		session   string
		resolver  *fakeResolver
		wantUser  *models.User
		wantCalls int
	}{
		{"anonymous", "", &fakeResolver{}, nil, 0},
		{"known user", "alice", &fakeResolver{users: map[string]*models.User{"alice": alice}}, alice, 1},
		{"deleted user", "ghost", &fakeResolver{users: map[string]*models.User{}}, nil, 1},
		{"lookup error", "alice", &fakeResolver{err: errors.New("db down")}, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dummy := &dummyHandler{}
			h := SessionAuth(fakeSessions{username: tt.session}, tt.resolver, zap.NewNop())(dummy)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			if !dummy.called {
				t.Fatal("expected next handler to be called")
			}
			if got := UserFromContext(dummy.ctx); got != tt.wantUser {
				t.Errorf("user = %+v; want %+v", got, tt.wantUser)
			}
			if tt.resolver.calls != tt.wantCalls {
				t.Errorf("Resolve calls = %d; want %d", tt.resolver.calls, tt.wantCalls)
			}
		})
	}
}

func TestSessionAuth_LogsLookupError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := SessionAuth(fakeSessions{username: "alice"}, &fakeResolver{err: errors.New("db down")}, zap.New(core))(&dummyHandler{})

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if logs.FilterMessage("resolve session user").Len() != 1 {
		t.Errorf("expected lookup error to be logged, got %v", logs.All())
	}
}

func TestRequireUser(t *testing.T) {
	t.Run("anonymous redirected", func(t *testing.T) {
		dummy := &dummyHandler{}
		rec := httptest.NewRecorder()
		RequireUser(dummy).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/films", nil))

		if dummy.called {
			t.Error("did not expect next handler to be called for anonymous request")
		}
		if rec.Code != http.StatusSeeOther {
			t.Errorf("expected 303, got %d", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/login" {
			t.Errorf("Location = %q; want /login", loc)
		}
	})

	t.Run("signed in passes", func(t *testing.T) {
		dummy := &dummyHandler{}
		req := httptest.NewRequest(http.MethodGet, "/films", nil)
		req = req.WithContext(ContextWithUser(req.Context(), &models.User{ID: 1}))

		rec := httptest.NewRecorder()
		RequireUser(dummy).ServeHTTP(rec, req)

		if !dummy.called {
			t.Error("expected next handler to be called")
		}
	})
}

func TestUserFromContext_Empty(t *testing.T) {
	if u := UserFromContext(context.Background()); u != nil {
		t.Errorf("expected nil user, got %+v", u)
	}
}
