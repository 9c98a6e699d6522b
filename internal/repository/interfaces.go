// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/takumi/postgate/internal/model"
)

// ErrNoRowsUpdated は更新対象の行が存在しなかったことを示す。
// トランスポートエラーとは区別して扱う。
var ErrNoRowsUpdated = errors.New("no rows updated")

// ErrNotFound は削除対象の行が存在しなかったことを示す。
var ErrNotFound = errors.New("record not found")

// UserRepository はユーザーデータの永続化インターフェース。
// 検索系メソッドは見つからない場合にnilを返す（エラーにしない）。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は正規化済みemailでユーザーを検索する。見つからない場合はnilを返す。
	// emailは呼び出し側で小文字化されている前提。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// List は全ユーザーを取得する。
	List(ctx context.Context) ([]*model.User, error)

	// Create はユーザーを作成し、生成したIDを返す。
	// IDが未設定の場合は新しいUUIDを採番する。
	Create(ctx context.Context, user *model.User) (string, error)

	// Update はプロバイダー由来の全フィールドとupdated_atを上書きする。
	// 対象行が存在しない場合はErrNoRowsUpdatedを返す。
	Update(ctx context.Context, user *model.User) error

	// Upsert はemailをキーに挿入または更新し、ユーザーIDを返す。
	// 同時初回ログインの競合はemail一意制約で検出し、更新として再試行する。
	Upsert(ctx context.Context, user *model.User) (string, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 対象行が存在しない場合はErrNotFoundを返す。
	DeleteByID(ctx context.Context, id string) error
}

// PostRepository は記事データの永続化インターフェース。
type PostRepository interface {
	// List は全記事を取得する。
	List(ctx context.Context) ([]*model.Post, error)

	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// Create は記事を作成し、生成したIDを返す。
	Create(ctx context.Context, post *model.Post) (string, error)

	// Update は記事を上書き更新する。
	// 対象行が存在しない場合はErrNoRowsUpdatedを返す。
	Update(ctx context.Context, post *model.Post) error

	// DeleteByID は指定IDの記事を削除する。
	// 対象行が存在しない場合はErrNotFoundを返す。
	DeleteByID(ctx context.Context, id string) error
}
