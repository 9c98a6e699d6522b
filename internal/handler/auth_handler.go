// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/takumi/postgate/internal/middleware"
	"github.com/takumi/postgate/internal/model"
	"github.com/takumi/postgate/internal/profile"
)

// tokenCookieName はセッショントークンを格納するCookie名。
const tokenCookieName = "token"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// HandleCallback はOAuthコールバックを処理し、署名付きセッショントークンを返す。
	HandleCallback(ctx context.Context, code string) (string, error)
}

// UserFinder は自ユーザー取得に必要なインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// PhotoFetcher はプロフィール写真の中継に必要なインターフェース。
type PhotoFetcher interface {
	FetchPhoto(ctx context.Context, photoURL string) (data []byte, mimeType string, err error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	// FrontendOrigin はログイン成功後のリダイレクト先オリジン。
	FrontendOrigin string
	// TokenMaxAgeSeconds はセッションCookieの有効期間（秒）。
	TokenMaxAgeSeconds int
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	users   UserFinder
	photos  PhotoFetcher
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, users UserFinder, photos PhotoFetcher, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		users:   users,
		photos:  photos,
		config:  config,
	}
}

// Login はGoogle OAuthフローを開始する。
// GET /auth/google/login?state=/path
//
// stateにはログイン成功後にフロントエンドで遷移するパスを渡す。
// コールバックでfrontend_originの末尾にそのまま連結される。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if state == "" {
		state = "/"
	}

	url := h.service.GetLoginURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// GET|POST /auth/google?code=xxx&state=/path
//
// 成功時はセッショントークンをtoken Cookieに設定し、
// frontend_originにstateを連結したURLへ302リダイレクトする。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	signed, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			middleware.WriteErrorResponse(w, apiErr)
			return
		}
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   h.config.TokenMaxAgeSeconds,
		HttpOnly: true,
	})

	location := fmt.Sprintf("%s%s", h.config.FrontendOrigin, state)
	http.Redirect(w, r, location, http.StatusFound)
}

// Me は認証済みユーザー自身のレコードを返す。
// GET /auth/users
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteFail(w, http.StatusUnauthorized, "You are not logged in, please provide token")
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		slog.Error("failed to get user by ID",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		middleware.WriteFail(w, http.StatusBadRequest, "failed to get user")
		return
	}
	if user == nil {
		middleware.WriteFail(w, http.StatusBadRequest, "failed to get user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Photo は認証済みユーザーのプロフィール写真を中継する。
// GET /auth/users/photo
//
// 保存済みの写真URLをサーバー側で取得して返す。
// 写真未設定は404、取得失敗は502を返す。
func (h *AuthHandler) Photo(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteFail(w, http.StatusUnauthorized, "You are not logged in, please provide token")
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil || user == nil {
		middleware.WriteFail(w, http.StatusBadRequest, "failed to get user")
		return
	}

	data, mimeType, err := h.photos.FetchPhoto(r.Context(), user.Photo)
	if err != nil {
		if errors.Is(err, profile.ErrNoPhoto) {
			middleware.WriteFail(w, http.StatusNotFound, "no profile photo")
			return
		}
		slog.Warn("profile photo fetch failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		middleware.WriteFail(w, http.StatusBadGateway, "profile photo unavailable")
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Logout はセッションCookieを無効化する。
// GET /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
