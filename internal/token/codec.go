// Package token は署名付きセッショントークンのエンコード/デコードを提供する。
//
// トークンはHS256署名のJWTで、subject（ローカルユーザーID）と発行・失効時刻のみを
// 持つ。サーバー側にセッションテーブルは存在せず、トークン自体が唯一の資格情報となる。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken は署名不一致・構造不正・期限切れのいずれかを示す。
// 呼び出し側は原因を区別しない（すべて401相当）。
var ErrInvalidToken = errors.New("invalid token")

// Codec はセッショントークンの発行と検証を行う。
// 署名鍵と有効期間はプロセス全体で固定の設定として注入する。
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec はCodecを生成する。ttlMinutesはトークン有効期間（分）。
func NewCodec(secret string, ttlMinutes int) *Codec {
	return &Codec{
		secret: []byte(secret),
		ttl:    time.Duration(ttlMinutes) * time.Minute,
	}
}

// TTL はトークン有効期間を返す。CookieのMax-Age算出に使用する。
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Mint はsubjectを持つ署名付きトークンを発行する。
// クレームは {sub, iat: now, exp: now+ttl}。
func (c *Codec) Mint(subject string, now time.Time) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、subjectを返す。
// 有効期限の比較は厳密（now >= expで失効）で、クロックスキューは補償しない。
// 副作用を持たない。
func (c *Codec) Verify(signed string, now time.Time) (string, error) {
	if signed == "" {
		return "", ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(
		signed,
		&jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, ErrInvalidToken
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	// jwtの期限検証はnow < expを有効とみなすが、境界値now == expの扱いが
	// バージョンで揺れないよう自前でも厳密比較する。
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
