// Package profile はユーザープロフィールのドメインロジックを提供する。
package profile

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxPhotoSize はプロフィール写真の最大サイズ（2MB）。
const maxPhotoSize = 2 * 1024 * 1024

// photoTimeout はプロフィール写真取得のタイムアウト。
const photoTimeout = 5 * time.Second

// ErrNoPhoto は写真URLが未設定の場合に返される。
var ErrNoPhoto = errors.New("no profile photo")

// ErrPhotoUnavailable は写真の取得に失敗した場合に返される。
var ErrPhotoUnavailable = errors.New("profile photo unavailable")

// SSRFValidator はSSRF防止に必要なインターフェース。
// security.SSRFGuardServiceの部分集合として定義する。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// PhotoFetcherService はプロフィール写真取得のインターフェース。
type PhotoFetcherService interface {
	// FetchPhoto は指定URLからプロフィール写真を取得する。
	// URLが空の場合はErrNoPhoto、取得失敗時はErrPhotoUnavailableを返す。
	FetchPhoto(ctx context.Context, photoURL string) (data []byte, mimeType string, err error)
}

// PhotoFetcher はプロフィール写真取得機能の実装。
// OAuthプロバイダーが返した写真URLをサーバー側で取得して中継する。
// ユーザー由来のURLへアクセスするため、SSRF検証を必ず通す。
type PhotoFetcher struct {
	ssrfGuard SSRFValidator
}

// NewPhotoFetcher はPhotoFetcherの新しいインスタンスを生成する。
func NewPhotoFetcher(ssrfGuard SSRFValidator) *PhotoFetcher {
	return &PhotoFetcher{
		ssrfGuard: ssrfGuard,
	}
}

// FetchPhoto は指定URLからプロフィール写真を取得する。
func (f *PhotoFetcher) FetchPhoto(ctx context.Context, photoURL string) ([]byte, string, error) {
	if photoURL == "" {
		return nil, "", ErrNoPhoto
	}

	// SSRF検証
	if err := f.ssrfGuard.ValidateURL(photoURL); err != nil {
		return nil, "", ErrPhotoUnavailable
	}

	client := f.ssrfGuard.NewSafeClient(photoTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
	if err != nil {
		return nil, "", ErrPhotoUnavailable
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", ErrPhotoUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", ErrPhotoUnavailable
	}

	// レスポンスボディを読み込み（最大2MB）
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoSize+1))
	if err != nil {
		return nil, "", ErrPhotoUnavailable
	}
	if int64(len(body)) > maxPhotoSize {
		return nil, "", ErrPhotoUnavailable
	}

	mimeType := extractMimeType(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", ErrPhotoUnavailable
	}

	return body, mimeType, nil
}

// extractMimeType はContent-Typeヘッダーからメディアタイプを抽出する。
func extractMimeType(contentType string) string {
	if contentType == "" {
		return ""
	}
	// セミコロンの前の部分（charset等を除去）
	parts := strings.SplitN(contentType, ";", 2)
	return strings.TrimSpace(strings.ToLower(parts[0]))
}

// compile-time interface check
var _ PhotoFetcherService = (*PhotoFetcher)(nil)
