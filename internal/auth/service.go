// Package auth はGoogle OAuthによるログインフローとセッショントークン発行を提供する。
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/takumi/postgate/internal/model"
	"github.com/takumi/postgate/internal/repository"
	"github.com/takumi/postgate/internal/token"
)

// ProviderTokens はトークン交換で得られる一時的なトークンペア。
// 1回のログイン処理の間だけ保持し、永続化しない。
type ProviderTokens struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
}

// ProviderIdentity はプロバイダーから見たユーザー情報。ログインごとに生成される。
type ProviderIdentity struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをプロバイダートークンに交換する。
	ExchangeCode(ctx context.Context, code string) (*ProviderTokens, error)
	// FetchIdentity はトークンペアで認証してプロフィールを取得する。
	FetchIdentity(ctx context.Context, accessToken, idToken string) (*ProviderIdentity, error)
}

// LoginMetrics はログイン結果の計測インターフェース。
type LoginMetrics interface {
	RecordLoginSuccess()
	RecordLoginFailure(stage string)
}

// UserDirectory はログインフローが必要とするユーザーディレクトリ操作。
// repository.UserRepositoryの部分集合として定義する。
type UserDirectory interface {
	// Upsert はemailをキーに挿入または更新し、ユーザーIDを返す。
	Upsert(ctx context.Context, user *model.User) (string, error)
}

// Service はログインフローのオーケストレーションを行う。
// 認可コード交換→プロフィール取得→ユーザーupsert→トークン発行を直列に実行し、
// いずれかの段階で失敗したら即座に中断する。部分的なセッションは発行しない。
type Service struct {
	oauth   OAuthProvider
	users   UserDirectory
	codec   *token.Codec
	metrics LoginMetrics
}

// NewService はServiceを生成する。metricsはnil可。
func NewService(oauth OAuthProvider, users UserDirectory, codec *token.Codec, metrics LoginMetrics) *Service {
	return &Service{
		oauth:   oauth,
		users:   users,
		codec:   codec,
		metrics: metrics,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、署名付きセッショントークンを返す。
// 返すエラーはすべて*model.APIErrorで、ハンドラーはステータス変換のみを行う。
//
// upsertがコミットした後にトークン発行が失敗した場合の補償処理は行わない
// （ユーザーレコードは次回ログインで再利用されるため実害がない）。
func (s *Service) HandleCallback(ctx context.Context, code string) (string, error) {
	if code == "" {
		s.recordFailure("missing_code")
		return "", model.NewMissingCodeError()
	}

	// 1. 認可コードをトークンペアに交換
	tokens, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		slog.Error("oauth code exchange failed", slog.String("error", err.Error()))
		s.recordFailure("exchange")
		return "", model.NewExchangeFailedError(err.Error())
	}

	// 2. プロフィール取得
	identity, err := s.oauth.FetchIdentity(ctx, tokens.AccessToken, tokens.IDToken)
	if err != nil {
		slog.Error("oauth identity fetch failed", slog.String("error", err.Error()))
		s.recordFailure("identity_fetch")
		return "", model.NewIdentityFetchFailedError(err.Error())
	}

	// 3. ローカルユーザーをupsert（emailは小文字正規化）
	email := strings.ToLower(identity.Email)
	userID, err := s.users.Upsert(ctx, &model.User{
		GoogleID: identity.ID,
		Email:    email,
		UserName: identity.Name,
		Verified: identity.VerifiedEmail,
		Provider: "Google",
		Photo:    identity.Picture,
	})
	if err != nil {
		slog.Error("user upsert failed",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		s.recordFailure("directory")
		if errors.Is(err, repository.ErrNoRowsUpdated) {
			return "", model.NewUpdateFailedError()
		}
		return "", model.NewInternalError()
	}

	// 4. セッショントークンを発行
	signed, err := s.codec.Mint(userID, time.Now())
	if err != nil {
		slog.Error("token mint failed", slog.String("error", err.Error()))
		s.recordFailure("mint")
		return "", model.NewInternalError()
	}

	slog.Info("user logged in",
		slog.String("user_id", userID),
		slog.String("provider", "Google"),
	)
	if s.metrics != nil {
		s.metrics.RecordLoginSuccess()
	}

	return signed, nil
}

func (s *Service) recordFailure(stage string) {
	if s.metrics != nil {
		s.metrics.RecordLoginFailure(stage)
	}
}
