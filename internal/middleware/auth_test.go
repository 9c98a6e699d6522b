package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/takumi/postgate/internal/model"
)

// --- モック定義 ---

type mockVerifier struct {
	verifyFn func(signed string, now time.Time) (string, error)
	lastSeen string
}

func (m *mockVerifier) Verify(signed string, now time.Time) (string, error) {
	m.lastSeen = signed
	if m.verifyFn != nil {
		return m.verifyFn(signed, now)
	}
	return "user-1", nil
}

type mockUserFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserFinder) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return &model.User{ID: id}, nil
}

func runAuthMiddleware(t *testing.T, verifier *mockVerifier, users *mockUserFinder, req *http.Request) (*httptest.ResponseRecorder, bool, string) {
	t.Helper()
	var reached bool
	var ctxUserID string
	handler := NewAuthMiddleware(verifier, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		ctxUserID, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w, reached, ctxUserID
}

// --- テスト ---

// トークンが無い場合に401となり、検証が試みられないことを検証
func TestAuthMiddleware_NoToken(t *testing.T) {
	verifier := &mockVerifier{}
	req := httptest.NewRequest(http.MethodGet, "/auth/users", nil)

	w, reached, _ := runAuthMiddleware(t, verifier, &mockUserFinder{}, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if reached {
		t.Error("handler should not be reached")
	}
	if verifier.lastSeen != "" {
		t.Error("verify should not be called without a token")
	}

	var body FailResponseBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if body.Status != "fail" {
		t.Errorf("status field = %q, want fail", body.Status)
	}
}

// CookieとAuthorizationヘッダーの両方がある場合にCookieが優先されることを検証
func TestAuthMiddleware_CookieTakesPrecedenceOverHeader(t *testing.T) {
	verifier := &mockVerifier{}
	req := httptest.NewRequest(http.MethodGet, "/auth/users", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "A"})
	req.Header.Set("Authorization", "Bearer B")

	runAuthMiddleware(t, verifier, &mockUserFinder{}, req)

	if verifier.lastSeen != "A" {
		t.Errorf("verified token = %q, want %q (cookie value)", verifier.lastSeen, "A")
	}
}

// Cookieが無い場合にAuthorizationヘッダーの7文字目以降が使われることを検証
func TestAuthMiddleware_BearerHeaderFallback(t *testing.T) {
	verifier := &mockVerifier{}
	req := httptest.NewRequest(http.MethodGet, "/auth/users", nil)
	req.Header.Set("Authorization", "Bearer header-token")

	runAuthMiddleware(t, verifier, &mockUserFinder{}, req)

	if verifier.lastSeen != "header-token" {
		t.Errorf("verified token = %q, want %q", verifier.lastSeen, "header-token")
	}
}

// 検証失敗時に401となることを検証
func TestAuthMiddleware_InvalidToken(t *testing.T) {
	verifier := &mockVerifier{
		verifyFn: func(signed string, now time.Time) (string, error) {
			return "", errors.New("invalid token")
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/auth/users", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "expired"})

	w, reached, _ := runAuthMiddleware(t, verifier, &mockUserFinder{}, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if reached {
		t.Error("handler should not be reached")
	}
}

// 署名が有効でもsubjectのユーザーが削除済みなら401となることを検証
func TestAuthMiddleware_StaleSubjectRejected(t *testing.T) {
	users := &mockUserFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil // ユーザーは存在しない
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/auth/users", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "valid-but-stale"})

	w, reached, _ := runAuthMiddleware(t, &mockVerifier{}, users, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if reached {
		t.Error("handler should not be reached")
	}
}

// 認証成功時にユーザーIDがコンテキストに注入されることを検証
func TestAuthMiddleware_InjectsUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/auth/users", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "valid"})

	w, reached, ctxUserID := runAuthMiddleware(t, &mockVerifier{}, &mockUserFinder{}, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if !reached {
		t.Fatal("handler not reached")
	}
	if ctxUserID != "user-1" {
		t.Errorf("context user ID = %q, want user-1", ctxUserID)
	}
}

// UserIDFromContextが未認証コンテキストでエラーを返すことを検証
func TestUserIDFromContext_Missing(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Fatal("expected error for missing user ID")
	}
}
