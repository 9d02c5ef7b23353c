package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/ledgerquiz/internal/rbac"
)

func newTestAuth(t *testing.T) *AuthService {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return NewAuthService("test-hmac", "admin", h)
}

func login(t *testing.T, a *AuthService, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	LoginHandler(a)(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))
	return rec
}

func TestLogin(t *testing.T) {
	a := newTestAuth(t)

	if rec := login(t, a, `{"username":"admin","password":"wrong"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: %d", rec.Code)
	}
	if rec := login(t, a, `{"username":"root","password":"s3cret"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong user: %d", rec.Code)
	}
	if rec := login(t, a, `not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: %d", rec.Code)
	}

	rec := login(t, a, `{"username":"admin","password":"s3cret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body)
	}
	var out map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	c, err := a.Parse(out["access_token"])
	if err != nil {
		t.Fatal(err)
	}
	if c.Sub != "admin" || c.Role != "admin" {
		t.Fatalf("claims: %+v", c)
	}
}

func TestLoginDisabledWithoutPassword(t *testing.T) {
	a := NewAuthService("x", "admin", nil)
	if rec := login(t, a, `{"username":"admin","password":""}`); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestJWTMiddlewareSetsRole(t *testing.T) {
	a := newTestAuth(t)
	tok, err := a.IssueJWT("admin", "admin")
	if err != nil {
		t.Fatal(err)
	}
	var gotRole, gotSub string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRole = rbac.RoleFromContext(r.Context())
		gotSub = SubjectFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/questions", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || gotRole != "admin" || gotSub != "admin" {
		t.Fatalf("code=%d role=%q sub=%q", rec.Code, gotRole, gotSub)
	}

	other := NewAuthService("different", "admin", nil)
	forged, _ := other.IssueJWT("admin", "admin")
	req = httptest.NewRequest(http.MethodGet, "/admin/questions", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("forged token accepted: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/questions", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing bearer: %d", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(2, time.Hour)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes: %v", codes)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("other client limited: %d", rec.Code)
	}

	if n := l.Cleanup(time.Now().Add(4 * time.Hour)); n != 2 {
		t.Fatalf("cleanup removed %d", n)
	}
}
