package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/takumi/postgate/internal/middleware"
	"github.com/takumi/postgate/internal/model"
	"github.com/takumi/postgate/internal/profile"
)

// --- モック定義 ---

type mockAuthService struct {
	getLoginURLFn    func(state string) string
	handleCallbackFn func(ctx context.Context, code string) (string, error)
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (string, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return "", nil
}

type mockUserFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserFinder) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

type mockPhotoFetcher struct {
	fetchPhotoFn func(ctx context.Context, photoURL string) ([]byte, string, error)
}

func (m *mockPhotoFetcher) FetchPhoto(ctx context.Context, photoURL string) ([]byte, string, error) {
	if m.fetchPhotoFn != nil {
		return m.fetchPhotoFn(ctx, photoURL)
	}
	return nil, "", profile.ErrNoPhoto
}

func newTestAuthHandler(svc AuthServiceInterface, users UserFinder, photos PhotoFetcher) *AuthHandler {
	return NewAuthHandler(svc, users, photos, AuthHandlerConfig{
		FrontendOrigin:     "http://localhost:3000",
		TokenMaxAgeSeconds: 3600,
	})
}

// --- テスト ---

func TestAuthHandler_Login_RedirectsToOAuthURL(t *testing.T) {
	svc := &mockAuthService{
		getLoginURLFn: func(state string) string {
			return "https://accounts.google.com/o/oauth2/auth?state=" + state
		},
	}
	h := newTestAuthHandler(svc, &mockUserFinder{}, &mockPhotoFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/login?state=/profile", nil)
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}

	location := resp.Header.Get("Location")
	if !strings.Contains(location, "accounts.google.com") {
		t.Errorf("Location = %q, should contain google oauth URL", location)
	}
	if !strings.Contains(location, "/profile") {
		t.Errorf("Location = %q, should carry the state", location)
	}
}

func TestAuthHandler_Callback_Success_SetsCookieAndRedirects(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (string, error) {
			return "signed-token", nil
		},
	}
	h := newTestAuthHandler(svc, &mockUserFinder{}, &mockPhotoFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/auth/google?code=abc&state=/dashboard", nil)
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}

	// リダイレクト先はfrontend_origin + state
	location := resp.Header.Get("Location")
	if location != "http://localhost:3000/dashboard" {
		t.Errorf("Location = %q, want http://localhost:3000/dashboard", location)
	}

	// トークンCookieが設定される
	var tokenCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "token" {
			tokenCookie = c
		}
	}
	if tokenCookie == nil {
		t.Fatal("expected token cookie")
	}
	if tokenCookie.Value != "signed-token" {
		t.Errorf("cookie value = %q, want signed-token", tokenCookie.Value)
	}
	if !tokenCookie.HttpOnly {
		t.Error("token cookie should be HttpOnly")
	}
	if tokenCookie.Path != "/" {
		t.Errorf("cookie path = %q, want /", tokenCookie.Path)
	}
	if tokenCookie.MaxAge != 3600 {
		t.Errorf("cookie max-age = %d, want 3600", tokenCookie.MaxAge)
	}
}

func TestAuthHandler_Callback_APIErrorMapsToStatus(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (string, error) {
			return "", model.NewMissingCodeError()
		},
	}
	h := newTestAuthHandler(svc, &mockUserFinder{}, &mockPhotoFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}

	var body middleware.FailResponseBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if body.Status != "fail" {
		t.Errorf("status field = %q, want fail", body.Status)
	}
	if body.Message != "Authorization code not provided!" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestAuthHandler_Callback_ExchangeFailureReturns502(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (string, error) {
			return "", model.NewExchangeFailedError("token exchange failed with status 400: invalid_grant")
		},
	}
	h := newTestAuthHandler(svc, &mockUserFinder{}, &mockPhotoFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/auth/google?code=bad", nil)
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
	// プロバイダー側のメッセージが露出される
	if !strings.Contains(w.Body.String(), "invalid_grant") {
		t.Errorf("body = %q, should surface provider message", w.Body.String())
	}
}

func TestAuthHandler_Me_ReturnsCurrentUser(t *testing.T) {
	users := &mockUserFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "alice@example.com"}, nil
		},
	}
	h := newTestAuthHandler(&mockAuthService{}, users, &mockPhotoFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/auth/users", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var user model.User
	if err := json.Unmarshal(w.Body.Bytes(), &user); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if user.ID != "user-1" || user.Email != "alice@example.com" {
		t.Errorf("user = %+v", user)
	}
}

func TestAuthHandler_Me_UserGone(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{}, &mockUserFinder{}, &mockPhotoFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/auth/users", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "ghost"))
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAuthHandler_Photo_RelaysImage(t *testing.T) {
	users := &mockUserFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Photo: "https://example.com/me.jpg"}, nil
		},
	}
	jpegData := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	photos := &mockPhotoFetcher{
		fetchPhotoFn: func(ctx context.Context, photoURL string) ([]byte, string, error) {
			if photoURL != "https://example.com/me.jpg" {
				t.Errorf("photoURL = %q", photoURL)
			}
			return jpegData, "image/jpeg", nil
		},
	}
	h := newTestAuthHandler(&mockAuthService{}, users, photos)

	req := httptest.NewRequest(http.MethodGet, "/auth/users/photo", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	w := httptest.NewRecorder()

	h.Photo(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", ct)
	}
	if w.Body.Len() != len(jpegData) {
		t.Errorf("body length = %d, want %d", w.Body.Len(), len(jpegData))
	}
}

func TestAuthHandler_Photo_NoPhoto(t *testing.T) {
	users := &mockUserFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
	}
	h := newTestAuthHandler(&mockAuthService{}, users, &mockPhotoFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/auth/users/photo", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
	w := httptest.NewRecorder()

	h.Photo(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{}, &mockUserFinder{}, &mockPhotoFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var tokenCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "token" {
			tokenCookie = c
		}
	}
	if tokenCookie == nil {
		t.Fatal("expected token cookie")
	}
	if tokenCookie.MaxAge != -1 {
		t.Errorf("cookie max-age = %d, want -1", tokenCookie.MaxAge)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if body["status"] != "success" {
		t.Errorf("status field = %q, want success", body["status"])
	}
}
