package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/takumi/postgate/internal/middleware"
	"github.com/takumi/postgate/internal/model"
	"github.com/takumi/postgate/internal/repository"
)

// PostStore は記事ハンドラーが必要とする永続化インターフェース。
// repository.PostRepositoryの部分集合として定義する。
type PostStore interface {
	List(ctx context.Context) ([]*model.Post, error)
	FindByID(ctx context.Context, id string) (*model.Post, error)
	Create(ctx context.Context, post *model.Post) (string, error)
	Update(ctx context.Context, post *model.Post) error
	DeleteByID(ctx context.Context, id string) error
}

// Sanitizer は記事本文のサニタイズに必要なインターフェース。
// security.ContentSanitizerServiceの部分集合として定義する。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// PostHandler は記事管理のHTTPハンドラー。
// 本文は保存前にサニタイズされる。
type PostHandler struct {
	posts     PostStore
	sanitizer Sanitizer
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(posts PostStore, sanitizer Sanitizer) *PostHandler {
	return &PostHandler{
		posts:     posts,
		sanitizer: sanitizer,
	}
}

// List は全記事を返す。
// GET /api/posts
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List(r.Context())
	if err != nil {
		slog.Error("failed to list posts", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

// Get は指定IDの記事を返す。
// GET /api/posts/{id}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	post, err := h.posts.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("failed to get post",
			slog.String("post_id", id),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	if post == nil {
		middleware.WriteFail(w, http.StatusNotFound, "post not found")
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// Create は記事を作成する。
// POST /api/posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var post model.Post
	if err := json.NewDecoder(r.Body).Decode(&post); err != nil {
		middleware.WriteErrorResponse(w, model.NewBadRequestError("invalid request body"))
		return
	}
	if post.Title == "" {
		middleware.WriteErrorResponse(w, model.NewValidationError("title"))
		return
	}

	post.Body = h.sanitizer.Sanitize(post.Body)
	id, err := h.posts.Create(r.Context(), &post)
	if err != nil {
		slog.Error("failed to create post", slog.String("error", err.Error()))
		middleware.WriteErrorResponse(w, model.NewBadRequestError("failed to create post"))
		return
	}

	writeSuccess(w, http.StatusCreated, id)
}

// Update は記事を更新する。
// PUT /api/posts
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	var post model.Post
	if err := json.NewDecoder(r.Body).Decode(&post); err != nil {
		middleware.WriteErrorResponse(w, model.NewBadRequestError("invalid request body"))
		return
	}
	if post.ID == "" {
		middleware.WriteErrorResponse(w, model.NewValidationError("id"))
		return
	}

	post.Body = h.sanitizer.Sanitize(post.Body)
	if err := h.posts.Update(r.Context(), &post); err != nil {
		if errors.Is(err, repository.ErrNoRowsUpdated) {
			middleware.WriteErrorResponse(w, model.NewUpdateFailedError())
			return
		}
		slog.Error("failed to update post",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	writeSuccess(w, http.StatusOK, post.ID)
}

// Delete は指定IDの記事を削除する。
// DELETE /api/posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		middleware.WriteErrorResponse(w, model.NewValidationError("id"))
		return
	}

	if err := h.posts.DeleteByID(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			middleware.WriteErrorResponse(w, model.NewBadRequestError("post not found"))
			return
		}
		slog.Error("failed to delete post",
			slog.String("post_id", id),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	writeSuccess(w, http.StatusOK, "")
}
