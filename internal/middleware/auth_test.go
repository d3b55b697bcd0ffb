package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/echofeed/backend/internal/auth"
)

func protectedHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, ok := UsernameFromContext(r.Context())
		if !ok {
			t.Fatalf("expected username in context")
		}
		w.Write([]byte(username))
	})
}

func TestRequireAuth(t *testing.T) {
	issuer := auth.NewIssuer("secret", time.Hour)
	h := RequireAuth(issuer)(protectedHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.Code)
	}

	token, err := issuer.Issue("id-1", "carol")
	if err != nil {
		t.Fatalf("Issue err: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || resp.Body.String() != "carol" {
		t.Fatalf("expected 200/carol, got %d/%s", resp.Code, resp.Body.String())
	}
}

func TestRequireAdmin(t *testing.T) {
	issuer := auth.NewIssuer("secret", time.Hour)
	h := RequireAdmin(issuer, "admin")(protectedHandler(t))

	token, err := issuer.Issue("id-1", "carol")
	if err != nil {
		t.Fatalf("Issue err: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", resp.Code)
	}

	adminToken, err := issuer.Issue("id-2", "admin")
	if err != nil {
		t.Fatalf("Issue err: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", resp.Code)
	}
}
