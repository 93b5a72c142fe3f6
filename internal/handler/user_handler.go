package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/postboard/internal/middleware"
	"github.com/hitoshi/postboard/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Me(ctx context.Context, identity *model.Identity) (*model.User, error)
	// Withdraw は自分のアカウントと、自分の投稿・コメントを一括削除する。
	Withdraw(ctx context.Context, identity *model.Identity) error
	List(ctx context.Context, identity *model.Identity) ([]*model.User, error)
	ChangeRole(ctx context.Context, identity *model.Identity, targetID string, role model.Role) (*model.User, error)
	AdminDelete(ctx context.Context, identity *model.Identity, targetID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	errors  *middleware.ErrorWriter
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, errors *middleware.ErrorWriter) *UserHandler {
	return &UserHandler{
		service: service,
		errors:  errors,
	}
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// Me はログイン中のユーザー情報を返す。
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	user, err := h.service.Me(r.Context(), identity)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.service.Withdraw(r.Context(), identity); err != nil {
		h.errors.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List は全ユーザーを返す。
// GET /api/admin/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	users, err := h.service.List(r.Context(), identity)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ChangeRole は対象ユーザーのロールを変更する。
// PATCH /api/admin/users/{id}/role
func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req changeRoleRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	// 未定義のロールはRoleUnknownのまま渡す。存在確認と認可を先に行うためサービス側で検証する。
	role, _ := model.ParseRole(req.Role)

	user, err := h.service.ChangeRole(r.Context(), identity, chi.URLParam(r, "id"), role)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// AdminDelete は対象ユーザーとそのコンテンツを削除する。
// DELETE /api/admin/users/{id}
func (h *UserHandler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.service.AdminDelete(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		h.errors.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
