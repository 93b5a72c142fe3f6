package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/postboard/internal/middleware"
	"github.com/hitoshi/postboard/internal/model"
)

// CommentServiceInterface はコメントハンドラーが必要とするサービスインターフェース。
type CommentServiceInterface interface {
	ListByPost(ctx context.Context, identity *model.Identity, postID string) ([]*model.Comment, error)
	Get(ctx context.Context, identity *model.Identity, id string) (*model.Comment, error)
	Create(ctx context.Context, identity *model.Identity, postID, content string) (*model.Comment, error)
	Update(ctx context.Context, identity *model.Identity, id, content string) (*model.Comment, error)
	Delete(ctx context.Context, identity *model.Identity, id string) error
}

// CommentHandler はコメントのHTTPハンドラー。
type CommentHandler struct {
	service CommentServiceInterface
	errors  *middleware.ErrorWriter
}

// NewCommentHandler はCommentHandlerを生成する。
func NewCommentHandler(service CommentServiceInterface, errors *middleware.ErrorWriter) *CommentHandler {
	return &CommentHandler{
		service: service,
		errors:  errors,
	}
}

type commentRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// ListByPost は投稿に付いたコメントを古い順に返す。
// GET /api/posts/{id}/comments
func (h *CommentHandler) ListByPost(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.ListByPost(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	resp := make([]commentResponse, 0, len(comments))
	for _, c := range comments {
		resp = append(resp, toCommentResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get はコメントを1件返す。
// GET /api/comments/{id}
func (h *CommentHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommentResponse(c))
}

// Create は投稿にコメントを追加する。
// POST /api/posts/{id}/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req commentRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	c, err := h.service.Create(r.Context(), identity, chi.URLParam(r, "id"), req.Content)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCommentResponse(c))
}

// Update はコメント本文を更新する。
// PUT /api/comments/{id}
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req commentRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	c, err := h.service.Update(r.Context(), identity, chi.URLParam(r, "id"), req.Content)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommentResponse(c))
}

// Delete はコメントを削除する。
// DELETE /api/comments/{id}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		h.errors.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
