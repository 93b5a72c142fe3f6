// Package comment はコメント管理のドメインロジックを提供する。
package comment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/postboard/internal/model"
	"github.com/hitoshi/postboard/internal/policy"
	"github.com/hitoshi/postboard/internal/repository"
	"github.com/hitoshi/postboard/internal/security"
)

// ChangeRecorder はリソース変更を記録する。nilの場合は記録しない。
type ChangeRecorder interface {
	RecordContentChange(resource, operation string)
}

// PostFinder は親投稿の存在確認に使うインターフェース。
type PostFinder interface {
	FindByID(ctx context.Context, id string) (*model.Post, error)
}

// Service はコメント管理のサービス層。
type Service struct {
	commentRepo repository.CommentRepository
	posts       PostFinder
	authz       policy.Authorizer
	sanitizer   security.ContentSanitizerService
	recorder    ChangeRecorder
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	commentRepo repository.CommentRepository,
	posts PostFinder,
	authz policy.Authorizer,
	sanitizer security.ContentSanitizerService,
	recorder ChangeRecorder,
) *Service {
	return &Service{
		commentRepo: commentRepo,
		posts:       posts,
		authz:       authz,
		sanitizer:   sanitizer,
		recorder:    recorder,
		now:         time.Now,
	}
}

// ListByPost は投稿に付いたコメントを古い順に返す。投稿が存在しない場合はNotFound。
func (s *Service) ListByPost(ctx context.Context, identity *model.Identity, postID string) ([]*model.Comment, error) {
	p, err := s.loadPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanPerform(identity, policy.ActionRead, p); err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.ListByPostID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}
	return comments, nil
}

// Get はコメントを1件返す。
func (s *Service) Get(ctx context.Context, identity *model.Identity, id string) (*model.Comment, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanPerform(identity, policy.ActionRead, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Create は投稿にコメントを付ける。他人の投稿にもコメントできる。
func (s *Service) Create(ctx context.Context, identity *model.Identity, postID, content string) (*model.Comment, error) {
	p, err := s.loadPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanPerform(identity, policy.ActionCreate, p); err != nil {
		return nil, err
	}

	body, err := s.clean(content)
	if err != nil {
		return nil, err
	}

	now := s.now()
	c := &model.Comment{
		ID:        uuid.NewString(),
		PostID:    p.ID,
		AuthorID:  identity.ID,
		Content:   body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.commentRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("コメントの作成に失敗しました: %w", err)
	}

	s.record("create")
	slog.Info("comment created",
		slog.String("comment_id", c.ID),
		slog.String("post_id", p.ID),
		slog.String("user_id", identity.ID),
	)
	return c, nil
}

// Update はコメント本文を更新する。所有者または管理者のみ実行できる。
func (s *Service) Update(ctx context.Context, identity *model.Identity, id, content string) (*model.Comment, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanPerform(identity, policy.ActionUpdate, c); err != nil {
		return nil, err
	}

	body, err := s.clean(content)
	if err != nil {
		return nil, err
	}

	c.Content = body
	c.UpdatedAt = s.now()
	if err := s.commentRepo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("コメントの更新に失敗しました: %w", err)
	}

	s.record("update")
	return c, nil
}

// Delete はコメントを削除する。所有者または管理者のみ実行できる。
func (s *Service) Delete(ctx context.Context, identity *model.Identity, id string) error {
	c, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authz.CanPerform(identity, policy.ActionDelete, c); err != nil {
		return err
	}

	if err := s.commentRepo.DeleteByID(ctx, c.ID); err != nil {
		return fmt.Errorf("コメントの削除に失敗しました: %w", err)
	}

	s.record("delete")
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*model.Comment, error) {
	key, ok := model.ParseID(id)
	if !ok {
		return nil, model.NewCommentNotFoundError(id)
	}
	c, err := s.commentRepo.FindByID(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("コメントの取得に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewCommentNotFoundError(id)
	}
	return c, nil
}

func (s *Service) loadPost(ctx context.Context, postID string) (*model.Post, error) {
	key, ok := model.ParseID(postID)
	if !ok {
		return nil, model.NewPostNotFoundError(postID)
	}
	p, err := s.posts.FindByID(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewPostNotFoundError(postID)
	}
	return p, nil
}

func (s *Service) clean(content string) (string, error) {
	body := strings.TrimSpace(s.sanitizer.Sanitize(content))
	if body == "" {
		return "", model.NewValidationError("コメント本文は必須です")
	}
	return body, nil
}

func (s *Service) record(operation string) {
	if s.recorder != nil {
		s.recorder.RecordContentChange("comment", operation)
	}
}
