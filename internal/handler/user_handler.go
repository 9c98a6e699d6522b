package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/takumi/postgate/internal/middleware"
	"github.com/takumi/postgate/internal/model"
	"github.com/takumi/postgate/internal/repository"
)

// UserStore はユーザーハンドラーが必要とする永続化インターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserStore interface {
	List(ctx context.Context) ([]*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) (string, error)
	Update(ctx context.Context, user *model.User) error
	DeleteByID(ctx context.Context, id string) error
}

// emailQueryParam はemail検索リクエストの本文。
type emailQueryParam struct {
	Email string `json:"email"`
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	users UserStore
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(users UserStore) *UserHandler {
	return &UserHandler{
		users: users,
	}
}

// List は全ユーザーを返す。
// GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		slog.Error("failed to list users", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// FindByEmail はemailでユーザーを検索する。
// POST /api/users/email
func (h *UserHandler) FindByEmail(w http.ResponseWriter, r *http.Request) {
	var body emailQueryParam
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteErrorResponse(w, model.NewBadRequestError("invalid request body"))
		return
	}
	if body.Email == "" {
		middleware.WriteErrorResponse(w, model.NewValidationError("email"))
		return
	}

	// 保存時と同じ正規化で照合する
	email := strings.ToLower(body.Email)
	user, err := h.users.FindByEmail(r.Context(), email)
	if err != nil {
		slog.Error("failed to get user by email", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	if user == nil {
		middleware.WriteErrorResponse(w, model.NewBadRequestError("user not found"))
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Create はユーザーを作成する。
// POST /api/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var user model.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		middleware.WriteErrorResponse(w, model.NewBadRequestError("invalid request body"))
		return
	}
	if user.Email == "" {
		middleware.WriteErrorResponse(w, model.NewValidationError("email"))
		return
	}

	user.Email = strings.ToLower(user.Email)
	id, err := h.users.Create(r.Context(), &user)
	if err != nil {
		slog.Error("failed to create user", slog.String("error", err.Error()))
		middleware.WriteErrorResponse(w, model.NewBadRequestError("failed to create user"))
		return
	}

	writeSuccess(w, http.StatusCreated, id)
}

// Update はユーザーを更新する。
// PUT /api/users
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var user model.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		middleware.WriteErrorResponse(w, model.NewBadRequestError("invalid request body"))
		return
	}
	if user.ID == "" {
		middleware.WriteErrorResponse(w, model.NewValidationError("id"))
		return
	}

	user.Email = strings.ToLower(user.Email)
	if err := h.users.Update(r.Context(), &user); err != nil {
		if errors.Is(err, repository.ErrNoRowsUpdated) {
			middleware.WriteErrorResponse(w, model.NewUpdateFailedError())
			return
		}
		slog.Error("failed to update user", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	writeSuccess(w, http.StatusOK, user.ID)
}

// Delete は指定IDのユーザーを削除する。
// DELETE /api/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		middleware.WriteErrorResponse(w, model.NewValidationError("id"))
		return
	}

	if err := h.users.DeleteByID(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			middleware.WriteErrorResponse(w, model.NewBadRequestError("user not found"))
			return
		}
		slog.Error("failed to delete user",
			slog.String("user_id", id),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	writeSuccess(w, http.StatusOK, "")
}
