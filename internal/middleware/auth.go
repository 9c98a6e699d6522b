// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/takumi/postgate/internal/model"
)

// tokenCookieName はセッショントークンを格納するCookie名。
const tokenCookieName = "token"

// bearerPrefixLen は"Bearer "プレフィックスの固定長。
const bearerPrefixLen = 7

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// TokenVerifier はセッショントークンの検証に必要なインターフェース。
// token.Codecの部分集合として定義する。
type TokenVerifier interface {
	Verify(signed string, now time.Time) (string, error)
}

// UserFinder は認証時のユーザー存在確認に必要なインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// NewAuthMiddleware はリクエストからセッショントークンを取り出して検証し、
// 認証済みユーザーIDをリクエストコンテキストに注入するミドルウェアを返す。
//
// トークンの抽出順序はCookie（token）が優先で、なければAuthorizationヘッダーの
// "Bearer "プレフィックス以降を使用する。どちらにもなければ401を返す。
// 署名が有効でもsubjectのユーザーが既に存在しない場合は401を返す
// （トークンの有効性はアカウントの有効性を意味しない）。
func NewAuthMiddleware(verifier TokenVerifier, users UserFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. トークンの抽出（Cookie優先）
			signed := extractToken(r)
			if signed == "" {
				WriteFail(w, http.StatusUnauthorized, "You are not logged in, please provide token")
				return
			}

			// 2. 署名と有効期限の検証
			userID, err := verifier.Verify(signed, time.Now())
			if err != nil {
				WriteFail(w, http.StatusUnauthorized, "Invalid token or user doesn't exist")
				return
			}

			// 3. subjectの存在確認
			user, err := users.FindByID(r.Context(), userID)
			if err != nil {
				slog.Error("failed to find user for token subject",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				WriteFail(w, http.StatusUnauthorized, "Invalid token or user doesn't exist")
				return
			}
			if user == nil {
				WriteFail(w, http.StatusUnauthorized, "User belonging to this token no longer exists")
				return
			}

			// 4. 認証済みユーザーIDをコンテキストに注入
			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken はCookieまたはAuthorizationヘッダーからトークンを取り出す。
// Cookieが優先される。見つからない場合は空文字列を返す。
func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie(tokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	if len(header) > bearerPrefixLen {
		return header[bearerPrefixLen:]
	}

	return ""
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
