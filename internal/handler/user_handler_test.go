package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/takumi/postgate/internal/model"
	"github.com/takumi/postgate/internal/repository"
)

// --- モック定義 ---

type mockUserStore struct {
	listFn        func(ctx context.Context) ([]*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	createFn      func(ctx context.Context, user *model.User) (string, error)
	updateFn      func(ctx context.Context, user *model.User) error
	deleteByIDFn  func(ctx context.Context, id string) error
}

func (m *mockUserStore) List(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockUserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserStore) Create(ctx context.Context, user *model.User) (string, error) {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return "new-id", nil
}

func (m *mockUserStore) Update(ctx context.Context, user *model.User) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, user)
	}
	return nil
}

func (m *mockUserStore) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

// --- テスト ---

func TestUserHandler_List(t *testing.T) {
	store := &mockUserStore{
		listFn: func(ctx context.Context) ([]*model.User, error) {
			return []*model.User{
				{ID: "u1", Email: "a@example.com"},
				{ID: "u2", Email: "b@example.com"},
			}, nil
		},
	}
	h := NewUserHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var users []*model.User
	if err := json.Unmarshal(w.Body.Bytes(), &users); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("len(users) = %d, want 2", len(users))
	}
}

func TestUserHandler_FindByEmail_NormalizesInput(t *testing.T) {
	var queried string
	store := &mockUserStore{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			queried = email
			return &model.User{ID: "u1", Email: email}, nil
		},
	}
	h := NewUserHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/api/users/email",
		strings.NewReader(`{"email":"Alice@Example.COM"}`))
	w := httptest.NewRecorder()

	h.FindByEmail(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if queried != "alice@example.com" {
		t.Errorf("queried email = %q, want lower-cased", queried)
	}
}

func TestUserHandler_FindByEmail_NotFound(t *testing.T) {
	h := NewUserHandler(&mockUserStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/users/email",
		strings.NewReader(`{"email":"ghost@example.com"}`))
	w := httptest.NewRecorder()

	h.FindByEmail(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUserHandler_FindByEmail_MissingEmail(t *testing.T) {
	h := NewUserHandler(&mockUserStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/users/email", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	h.FindByEmail(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "email") {
		t.Errorf("body = %q, should name the field", w.Body.String())
	}
}

func TestUserHandler_Create(t *testing.T) {
	var created *model.User
	store := &mockUserStore{
		createFn: func(ctx context.Context, user *model.User) (string, error) {
			created = user
			return "generated-id", nil
		},
	}
	h := NewUserHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/api/users",
		strings.NewReader(`{"email":"New@Example.com","user_name":"new user"}`))
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	if created == nil {
		t.Fatal("create was not called")
	}
	if created.Email != "new@example.com" {
		t.Errorf("stored email = %q, want lower-cased", created.Email)
	}

	var body successBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if body.ID != "generated-id" {
		t.Errorf("id = %q, want generated-id", body.ID)
	}
}

func TestUserHandler_Update_ZeroRows(t *testing.T) {
	store := &mockUserStore{
		updateFn: func(ctx context.Context, user *model.User) error {
			return repository.ErrNoRowsUpdated
		},
	}
	h := NewUserHandler(store)

	req := httptest.NewRequest(http.MethodPut, "/api/users",
		strings.NewReader(`{"id":"missing","email":"a@example.com"}`))
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUserHandler_Delete_NotFound(t *testing.T) {
	store := &mockUserStore{
		deleteByIDFn: func(ctx context.Context, id string) error {
			return repository.ErrNotFound
		},
	}
	h := NewUserHandler(store)

	r := chi.NewRouter()
	r.Delete("/api/users/{id}", h.Delete)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/ghost", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUserHandler_Delete_Success(t *testing.T) {
	var deleted string
	store := &mockUserStore{
		deleteByIDFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	h := NewUserHandler(store)

	r := chi.NewRouter()
	r.Delete("/api/users/{id}", h.Delete)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/u1", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if deleted != "u1" {
		t.Errorf("deleted id = %q, want u1", deleted)
	}
}
