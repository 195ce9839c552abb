package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/slotbook/slotbook/internal/auth"
	"github.com/slotbook/slotbook/internal/model"
)

const testSecret = "middleware-test-secret-32-bytes-min!"

type fakePrincipalSource struct {
	principals map[string]*model.Principal
}

func (f *fakePrincipalSource) Principal(ctx context.Context, userID string) (*model.Principal, error) {
	p, ok := f.principals[userID]
	if !ok {
		return nil, errors.New("unknown user")
	}
	return p, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAuthMiddleware(principals map[string]*model.Principal) func(http.Handler) http.Handler {
	return Auth(AuthConfig{
		Logger:     testLogger(),
		JWTSecret:  testSecret,
		Principals: &fakePrincipalSource{principals: principals},
	})
}

// okHandler records the principal it saw.
func okHandler(seen **model.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = auth.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_ValidToken(t *testing.T) {
	t.Parallel()

	token, err := auth.MakeToken("user-1", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("MakeToken failed: %v", err)
	}

	var seen *model.Principal
	mw := newAuthMiddleware(map[string]*model.Principal{
		"user-1": {UserID: "user-1", Email: "u@example.com", IsAdmin: false},
	})

	req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	mw(okHandler(&seen)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen == nil || seen.UserID != "user-1" {
		t.Errorf("principal not injected: %+v", seen)
	}
}

func TestAuth_Rejections(t *testing.T) {
	t.Parallel()

	valid, err := auth.MakeToken("user-1", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("MakeToken failed: %v", err)
	}
	wrongSecret, err := auth.MakeToken("user-1", "another-secret-that-is-32-bytes!!!!!", time.Minute)
	if err != nil {
		t.Fatalf("MakeToken failed: %v", err)
	}
	expired, err := auth.MakeToken("user-1", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("MakeToken failed: %v", err)
	}
	deletedUser, err := auth.MakeToken("gone", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("MakeToken failed: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer garbage"},
		{"wrong secret", "Bearer " + wrongSecret},
		{"expired", "Bearer " + expired},
		{"deleted user", "Bearer " + deletedUser},
	}

	mw := newAuthMiddleware(map[string]*model.Principal{
		"user-1": {UserID: "user-1"},
	})
	_ = valid

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var seen *model.Principal
			req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			mw(okHandler(&seen)).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if seen != nil {
				t.Error("handler must not run for rejected requests")
			}
		})
	}
}

func TestAuth_PrincipalReflectsStore(t *testing.T) {
	t.Parallel()

	// The token carries only the subject; role comes from the record.
	token, err := auth.MakeToken("admin-1", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("MakeToken failed: %v", err)
	}

	var seen *model.Principal
	mw := newAuthMiddleware(map[string]*model.Principal{
		"admin-1": {UserID: "admin-1", Email: "root@example.com", IsAdmin: true},
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	mw(okHandler(&seen)).ServeHTTP(rec, req)

	if seen == nil || !seen.IsAdmin {
		t.Errorf("admin flag should come from the user record: %+v", seen)
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		principal  *model.Principal
		wantStatus int
	}{
		{"admin passes", &model.Principal{UserID: "a", IsAdmin: true}, http.StatusOK},
		{"regular user forbidden", &model.Principal{UserID: "u"}, http.StatusForbidden},
		{"no principal unauthorized", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			if tt.principal != nil {
				req = req.WithContext(auth.ContextWithPrincipal(req.Context(), tt.principal))
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
