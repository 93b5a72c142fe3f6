package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/postboard/internal/middleware"
	"github.com/hitoshi/postboard/internal/model"
	"github.com/hitoshi/postboard/internal/post"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	List(ctx context.Context, identity *model.Identity, page, limit int) (*model.PostPage, error)
	Get(ctx context.Context, identity *model.Identity, id string) (*model.Post, error)
	Create(ctx context.Context, identity *model.Identity, in post.Input) (*model.Post, error)
	Update(ctx context.Context, identity *model.Identity, id string, in post.Input) (*model.Post, error)
	Delete(ctx context.Context, identity *model.Identity, id string) error
}

// PostHandler は投稿のHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
	errors  *middleware.ErrorWriter
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface, errors *middleware.ErrorWriter) *PostHandler {
	return &PostHandler{
		service: service,
		errors:  errors,
	}
}

type postRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required,max=20000"`
}

// List は投稿一覧を返す。
// GET /api/posts?page=1&limit=20
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		h.errors.Write(w, r, model.NewValidationError("pageは整数で指定してください"))
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.errors.Write(w, r, model.NewValidationError("limitは整数で指定してください"))
		return
	}

	result, err := h.service.List(r.Context(), middleware.IdentityFromContext(r.Context()), page, limit)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	resp := postPageResponse{
		Posts: make([]postResponse, 0, len(result.Posts)),
		Total: result.Total,
		Page:  result.Page,
		Limit: result.Limit,
	}
	for _, p := range result.Posts {
		resp.Posts = append(resp.Posts, toPostResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get は投稿を1件返す。
// GET /api/posts/{id}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostResponse(p))
}

// Create は投稿を作成する。
// POST /api/posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req postRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	p, err := h.service.Create(r.Context(), identity, post.Input{Title: req.Title, Content: req.Content})
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPostResponse(p))
}

// Update は投稿のタイトルと本文を更新する。
// PUT /api/posts/{id}
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req postRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	p, err := h.service.Update(r.Context(), identity, chi.URLParam(r, "id"), post.Input{Title: req.Title, Content: req.Content})
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostResponse(p))
}

// Delete は投稿とそのコメントを削除する。
// DELETE /api/posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// queryInt はクエリパラメータを整数として読む。未指定の場合は0を返す。
func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
