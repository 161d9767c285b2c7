package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mrogowski01/rentacar/libs/auth"
	"github.com/mrogowski01/rentacar/services/user-service/internal/storage"
)

func TestPasswordHashing(t *testing.T) {
	password := "pass123"
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if hash == "" {
		t.Fatal("expected non-empty hash")
	}
	if err := verifyPassword(hash, password); err != nil {
		t.Fatalf("verifyPassword should succeed: %v", err)
	}
	if err := verifyPassword(hash, "wrong-pass"); err == nil {
		t.Fatal("verifyPassword should fail for wrong password")
	}
}

func TestMe(t *testing.T) {
	signer := NewHS256Signer("test-secret")
	h := NewAuthHandler(signer, nil, nil, nil, nil, nil, 0)

	user := storage.User{ID: "u-1", Email: "renter@example.com", Role: auth.RoleUser}
	token, err := issueJWT(user, signer)
	if err != nil {
		t.Fatalf("issueJWT failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp meResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UserID != user.ID || resp.Email != user.Email || resp.Role != user.Role {
		t.Fatalf("unexpected claims in response: %+v", resp)
	}
}

func TestMeRejectsBadTokens(t *testing.T) {
	h := NewAuthHandler(NewHS256Signer("test-secret"), nil, nil, nil, nil, nil, 0)

	cases := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "not bearer", header: "Basic abc"},
		{name: "garbage token", header: "Bearer not-a-jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.Me(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestUserEmailRejectsBadPaths(t *testing.T) {
	h := NewAuthHandler(NewHS256Signer("test-secret"), nil, nil, nil, nil, nil, 0)

	cases := []struct {
		name string
		path string
		want int
	}{
		{name: "missing email suffix", path: "/api/auth/users/5c1f2a6e-0d3b-4a8e-9c51-2f4f6f3f9d10", want: http.StatusBadRequest},
		{name: "empty user id", path: "/api/auth/users//email", want: http.StatusBadRequest},
		{name: "nested path", path: "/api/auth/users/a/b/email", want: http.StatusBadRequest},
		{name: "not a uuid", path: "/api/auth/users/42/email", want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			rec := httptest.NewRecorder()
			h.UserEmail(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/users/5c1f2a6e-0d3b-4a8e-9c51-2f4f6f3f9d10/email", nil)
	rec := httptest.NewRecorder()
	h.UserEmail(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
