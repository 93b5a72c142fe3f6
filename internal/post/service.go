// Package post は投稿管理のドメインロジックを提供する。
package post

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/postboard/internal/model"
	"github.com/hitoshi/postboard/internal/policy"
	"github.com/hitoshi/postboard/internal/repository"
	"github.com/hitoshi/postboard/internal/security"
)

// ページングの既定値と上限。
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Input は投稿の作成・更新内容。
type Input struct {
	Title   string
	Content string
}

// ChangeRecorder はリソース変更を記録する。nilの場合は記録しない。
type ChangeRecorder interface {
	RecordContentChange(resource, operation string)
}

// Service は投稿管理のサービス層。
// 変更系の操作は「対象の取得 → 存在確認 → 認可 → 変更」の順で処理する。
type Service struct {
	postRepo  repository.PostRepository
	authz     policy.Authorizer
	sanitizer security.ContentSanitizerService
	recorder  ChangeRecorder
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	postRepo repository.PostRepository,
	authz policy.Authorizer,
	sanitizer security.ContentSanitizerService,
	recorder ChangeRecorder,
) *Service {
	return &Service{
		postRepo:  postRepo,
		authz:     authz,
		sanitizer: sanitizer,
		recorder:  recorder,
		now:       time.Now,
	}
}

// List は投稿一覧を作成日時の降順で返す。匿名でも利用できる。
// pageは1始まり。範囲外の値は既定値に丸める。
func (s *Service) List(ctx context.Context, identity *model.Identity, page, limit int) (*model.PostPage, error) {
	if err := s.authz.CanPerform(identity, policy.ActionRead, nil); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	// オフセットがintに収まる範囲にpageを丸める
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}

	posts, total, err := s.postRepo.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}

	return &model.PostPage{
		Posts: posts,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

// Get は投稿を1件返す。匿名でも利用できる。
func (s *Service) Get(ctx context.Context, identity *model.Identity, id string) (*model.Post, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanPerform(identity, policy.ActionRead, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Create は投稿を作成する。作成者は呼び出し元のIdentityになる。
func (s *Service) Create(ctx context.Context, identity *model.Identity, in Input) (*model.Post, error) {
	if err := s.authz.CanPerform(identity, policy.ActionCreate, nil); err != nil {
		return nil, err
	}

	title, content, err := s.clean(in)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &model.Post{
		ID:        uuid.NewString(),
		AuthorID:  identity.ID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.postRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}

	s.record("create")
	slog.Info("post created",
		slog.String("post_id", p.ID),
		slog.String("user_id", identity.ID),
	)
	return p, nil
}

// Update は投稿のタイトルと本文を更新する。所有者または管理者のみ実行できる。
func (s *Service) Update(ctx context.Context, identity *model.Identity, id string, in Input) (*model.Post, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanPerform(identity, policy.ActionUpdate, p); err != nil {
		return nil, err
	}

	title, content, err := s.clean(in)
	if err != nil {
		return nil, err
	}

	p.Title = title
	p.Content = content
	p.UpdatedAt = s.now()
	if err := s.postRepo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("投稿の更新に失敗しました: %w", err)
	}

	s.record("update")
	return p, nil
}

// Delete は投稿とそのコメントを削除する。所有者または管理者のみ実行できる。
func (s *Service) Delete(ctx context.Context, identity *model.Identity, id string) error {
	p, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authz.CanPerform(identity, policy.ActionDelete, p); err != nil {
		return err
	}

	if err := s.postRepo.DeleteWithComments(ctx, p.ID); err != nil {
		return fmt.Errorf("投稿の削除に失敗しました: %w", err)
	}

	s.record("delete")
	slog.Info("post deleted",
		slog.String("post_id", p.ID),
		slog.String("user_id", identity.ID),
	)
	return nil
}

// load は投稿を取得する。存在しない場合は認可より先にNotFoundを返す。
func (s *Service) load(ctx context.Context, id string) (*model.Post, error) {
	key, ok := model.ParseID(id)
	if !ok {
		return nil, model.NewPostNotFoundError(id)
	}
	p, err := s.postRepo.FindByID(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewPostNotFoundError(id)
	}
	return p, nil
}

// clean はタイトルと本文をサニタイズし、空になった場合は入力エラーを返す。
func (s *Service) clean(in Input) (string, string, error) {
	title := strings.TrimSpace(s.sanitizer.SanitizePlain(in.Title))
	if title == "" {
		return "", "", model.NewValidationError("タイトルは必須です")
	}
	content := strings.TrimSpace(s.sanitizer.Sanitize(in.Content))
	if content == "" {
		return "", "", model.NewValidationError("本文は必須です")
	}
	return title, content, nil
}

func (s *Service) record(operation string) {
	if s.recorder != nil {
		s.recorder.RecordContentChange("post", operation)
	}
}
