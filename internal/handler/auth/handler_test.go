package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/echofeed/backend/internal/auth"
	userservice "github.com/echofeed/backend/internal/service/user"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()

	users, err := userservice.Open(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("open user db: %v", err)
	}
	t.Cleanup(func() { users.Close() })

	issuer := auth.NewIssuer("test-secret", time.Hour)
	handler := New(users, issuer)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func postJSON(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestSignupThenLogin(t *testing.T) {
	r := setupRouter(t)

	resp := postJSON(t, r, "/auth/signup", map[string]string{
		"username": "carol",
		"email":    "carol@example.com",
		"password": "hunter2",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var signup struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &signup); err != nil || signup.Token == "" {
		t.Fatalf("expected token in signup response, got %s", resp.Body.String())
	}

	resp = postJSON(t, r, "/auth/login", map[string]string{
		"username": "carol",
		"password": "hunter2",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestSignupMissingFields(t *testing.T) {
	r := setupRouter(t)

	resp := postJSON(t, r, "/auth/signup", map[string]string{"username": "carol"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSignupDuplicateUsername(t *testing.T) {
	r := setupRouter(t)

	body := map[string]string{"username": "carol", "email": "c@example.com", "password": "hunter2"}
	if resp := postJSON(t, r, "/auth/signup", body); resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	if resp := postJSON(t, r, "/auth/signup", body); resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	r := setupRouter(t)

	resp := postJSON(t, r, "/auth/login", map[string]string{
		"username": "nobody",
		"password": "nope",
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
