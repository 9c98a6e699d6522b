package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/takumi/postgate/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反エラーコード。
const uniqueViolation = pq.ErrorCode("23505")

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, google_id, email, user_name, verified, provider, photo, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.GoogleID, &user.Email, &user.UserName,
		&user.Verified, &user.Provider, &user.Photo,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail は正規化済みemailでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// List は全ユーザーをcreated_at昇順で取得する。
func (r *PostgresUserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user := &model.User{}
		if err := rows.Scan(
			&user.ID, &user.GoogleID, &user.Email, &user.UserName,
			&user.Verified, &user.Provider, &user.Photo,
			&user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}

	return users, nil
}

// Create はユーザーを作成し、生成したIDを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) (string, error) {
	id := user.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, google_id, email, user_name, verified, provider, photo, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, user.GoogleID, user.Email, user.UserName,
		user.Verified, user.Provider, user.Photo, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert user: %w", err)
	}

	return id, nil
}

// Update はプロバイダー由来の全フィールドとupdated_atを上書きする。
// 対象行が存在しない場合はErrNoRowsUpdatedを返す。
func (r *PostgresUserRepo) Update(ctx context.Context, user *model.User) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET google_id = $1, email = $2, user_name = $3, verified = $4,
		     provider = $5, photo = $6, updated_at = $7
		 WHERE id = $8`,
		user.GoogleID, user.Email, user.UserName, user.Verified,
		user.Provider, user.Photo, time.Now(), user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNoRowsUpdated
	}
	return nil
}

// Upsert はemailをキーに挿入または更新し、ユーザーIDを返す。
// 挿入がemail一意制約違反になった場合（同時初回ログインの競合）は
// 既存ユーザーへの更新として再試行する。
func (r *PostgresUserRepo) Upsert(ctx context.Context, user *model.User) (string, error) {
	existing, err := r.FindByEmail(ctx, user.Email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		user.ID = existing.ID
		if err := r.Update(ctx, user); err != nil {
			return "", err
		}
		return existing.ID, nil
	}

	id, err := r.Create(ctx, user)
	if err == nil {
		return id, nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		// 競合相手が先に挿入した。既存ユーザーとして更新に切り替える。
		existing, ferr := r.FindByEmail(ctx, user.Email)
		if ferr != nil {
			return "", ferr
		}
		if existing == nil {
			return "", fmt.Errorf("unique violation but user not found: %s", user.Email)
		}
		user.ID = existing.ID
		if uerr := r.Update(ctx, user); uerr != nil {
			return "", uerr
		}
		return existing.ID, nil
	}

	return "", err
}

// DeleteByID は指定IDのユーザーを削除する。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
