package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"thesis-track/backend/config"
	"thesis-track/backend/internal/model"
	"thesis-track/backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-at-least-32-bytes-long!!",
		Issuer:         "identity-test",
		AccessTokenTTL: 15 * time.Minute,
	})
}

func mustToken(t *testing.T, m *jwt.Manager, role string) string {
	t.Helper()
	tok, err := m.GenerateAccessToken(jwt.Identity{UserID: "u-1", Role: role, Name: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return tok
}

// ═══════════════════════════════════════════════════════════
// JWTAuth / RoleAuth
// ═══════════════════════════════════════════════════════════

func TestJWTAuth(t *testing.T) {
	mgr := newJWT()

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"MissingHeader", "", http.StatusUnauthorized},
		{"BadScheme", "Basic abc", http.StatusUnauthorized},
		{"GarbageToken", "Bearer not.a.jwt", http.StatusUnauthorized},
		{"UnknownRole", "Bearer " + mustToken(t, mgr, "janitor"), http.StatusForbidden},
		{"Valid", "Bearer " + mustToken(t, mgr, model.RoleStudent), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser, gotRole, gotEmail string
			r := gin.New()
			r.GET("/p", JWTAuth(mgr, nil), func(c *gin.Context) {
				gotUser = c.GetString("user_id")
				gotRole = c.GetString("role")
				gotEmail = c.GetString("email")
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/p", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus == http.StatusOK {
				if gotUser != "u-1" || gotRole != model.RoleStudent || gotEmail != "ada@example.com" {
					t.Errorf("claims not injected: %s %s %s", gotUser, gotRole, gotEmail)
				}
			}
		})
	}
}

func TestJWTAuth_WrongSecret(t *testing.T) {
	other := jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "another-secret-also-32-bytes-long!!",
		Issuer:         "identity-test",
		AccessTokenTTL: time.Minute,
	})

	r := gin.New()
	r.GET("/p", JWTAuth(newJWT(), nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Authorization", "Bearer "+mustToken(t, other, model.RoleAdmin))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestRoleAuth(t *testing.T) {
	tests := []struct {
		role       string
		wantStatus int
	}{
		{"", http.StatusUnauthorized},
		{model.RoleStudent, http.StatusForbidden},
		{model.RoleAdmin, http.StatusOK},
	}

	for _, tt := range tests {
		r := gin.New()
		r.GET("/p", func(c *gin.Context) {
			if tt.role != "" {
				c.Set("role", tt.role)
			}
		}, RoleAuth(model.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/p", nil))
		if w.Code != tt.wantStatus {
			t.Errorf("role %q: expected %d, got %d", tt.role, tt.wantStatus, w.Code)
		}
	}
}

// ═══════════════════════════════════════════════════════════
// SyncUser
// ═══════════════════════════════════════════════════════════

type fakeUpserter struct {
	mu    sync.Mutex
	users []model.User
	err   error
}

func (f *fakeUpserter) Upsert(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, *u)
	return f.err
}

func TestSyncUser(t *testing.T) {
	up := &fakeUpserter{}
	r := gin.New()
	r.GET("/p", func(c *gin.Context) {
		c.Set("user_id", "u-1")
		c.Set("role", model.RoleProfessor)
		c.Set("name", "Prof")
		c.Set("email", "prof@example.com")
	}, SyncUser(up, nil, time.Minute, zap.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/p", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(up.users) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(up.users))
	}
	if got := up.users[0]; got.UserID != "u-1" || got.Role != model.RoleProfessor || !got.IsActive {
		t.Errorf("unexpected user: %+v", got)
	}
}

func TestSyncUser_InactiveClaim(t *testing.T) {
	mgr := newJWT()
	tok, err := mgr.GenerateAccessToken(jwt.Identity{UserID: "u-2", Role: model.RoleProfessor, Inactive: true})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	up := &fakeUpserter{}
	r := gin.New()
	r.GET("/p", JWTAuth(mgr, nil), SyncUser(up, nil, time.Minute, zap.NewNop()),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(up.users) != 1 || up.users[0].IsActive {
		t.Errorf("expected one inactive user, got %+v", up.users)
	}
}

func TestSyncUser_FailureDoesNotBlock(t *testing.T) {
	up := &fakeUpserter{err: errors.New("db down")}
	r := gin.New()
	r.GET("/p", func(c *gin.Context) { c.Set("user_id", "u-1") },
		SyncUser(up, nil, time.Minute, zap.NewNop()),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/p", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestSyncUser_Anonymous(t *testing.T) {
	up := &fakeUpserter{}
	r := gin.New()
	r.GET("/p", SyncUser(up, nil, time.Minute, zap.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/p", nil))

	if len(up.users) != 0 {
		t.Errorf("anonymous request should not upsert, got %d", len(up.users))
	}
}

// ═══════════════════════════════════════════════════════════
// RequestID / BodyLimit / CORS / RateLimit
// ═══════════════════════════════════════════════════════════

func TestRequestID(t *testing.T) {
	r := gin.New()
	var seen string
	r.GET("/p", RequestID(), func(c *gin.Context) { seen = c.GetString(requestIDKey) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	r.ServeHTTP(w, req)
	if seen != "abc-123" || w.Header().Get(requestIDHeader) != "abc-123" {
		t.Errorf("expected propagated id, got %q / %q", seen, w.Header().Get(requestIDHeader))
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/p", nil)
	req.Header.Set(requestIDHeader, "bad id\nwith newline")
	r.ServeHTTP(w, req)
	if seen == "bad id\nwith newline" || len(seen) != 36 {
		t.Errorf("expected generated uuid, got %q", seen)
	}
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.POST("/p", BodyLimit(16), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/p", strings.NewReader(strings.Repeat("x", 64))))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/p", strings.NewReader("{}")))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://thesis.example.edu/"}))
	r.GET("/p", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Origin", "https://thesis.example.edu")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://thesis.example.edu" {
		t.Errorf("expected allowed origin, got %q", got)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS header, got %q", got)
	}
}

func TestRateLimit_NilRedisPassesThrough(t *testing.T) {
	r := gin.New()
	r.GET("/p", RateLimit(nil, 1, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/p", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
}
