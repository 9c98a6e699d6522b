// Package model はドメインモデルを定義する。
package model

import "time"

// User はGoogleログインで登録されたローカルユーザーを表す。
// emailは保存・検索の前に必ず小文字へ正規化する。
type User struct {
	ID        string    `json:"id"`
	GoogleID  string    `json:"google_id"`
	Email     string    `json:"email"`
	UserName  string    `json:"user_name"`
	Verified  bool      `json:"verified"`
	Provider  string    `json:"provider"`
	Photo     string    `json:"photo"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserSummary はユーザー一覧APIで返す最小表現。
type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
