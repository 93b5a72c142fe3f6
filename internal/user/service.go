// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/postboard/internal/model"
	"github.com/hitoshi/postboard/internal/policy"
	"github.com/hitoshi/postboard/internal/repository"
)

// ChangeRecorder はリソース変更を記録する。nilの場合は記録しない。
type ChangeRecorder interface {
	RecordContentChange(resource, operation string)
}

// Service はユーザー管理のサービス層。
// 本人による参照・退会と、管理者によるユーザー一覧・ロール変更・削除を提供する。
type Service struct {
	userRepo repository.UserRepository
	authz    policy.Authorizer
	recorder ChangeRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, authz policy.Authorizer, recorder ChangeRecorder) *Service {
	return &Service{
		userRepo: userRepo,
		authz:    authz,
		recorder: recorder,
	}
}

// Me は呼び出し元自身のユーザー情報を返す。
func (s *Service) Me(ctx context.Context, identity *model.Identity) (*model.User, error) {
	if identity == nil {
		return nil, model.NewAuthenticationRequiredError()
	}
	u, err := s.load(ctx, identity.ID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanPerform(identity, policy.ActionRead, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Withdraw は呼び出し元自身の退会処理を実行する。
// 削除順序: 自分の投稿に付いたコメント → 自分のコメント → 自分の投稿 → ユーザー（同一トランザクション）
func (s *Service) Withdraw(ctx context.Context, identity *model.Identity) error {
	if identity == nil {
		return model.NewAuthenticationRequiredError()
	}
	u, err := s.load(ctx, identity.ID)
	if err != nil {
		return err
	}
	if err := s.authz.CanPerform(identity, policy.ActionDelete, u); err != nil {
		return err
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", u.ID),
	)

	if err := s.userRepo.DeleteWithContent(ctx, u.ID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	s.record("withdraw")
	slog.Info("退会処理が完了しました",
		slog.String("user_id", u.ID),
	)
	return nil
}

// List は全ユーザーを返す。管理者のみ実行できる。
func (s *Service) List(ctx context.Context, identity *model.Identity) ([]*model.User, error) {
	if err := s.authz.CanPerform(identity, policy.ActionListUsers, nil); err != nil {
		return nil, err
	}

	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// ChangeRole は対象ユーザーのロールを変更する。管理者のみ、かつ自分自身には実行できない。
func (s *Service) ChangeRole(ctx context.Context, identity *model.Identity, targetID string, role model.Role) (*model.User, error) {
	target, err := s.load(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanPerform(identity, policy.ActionChangeRole, target); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, model.NewValidationError("ロールはuserまたはadminを指定してください")
	}

	if target.Role == role {
		return target, nil
	}
	if err := s.userRepo.UpdateRole(ctx, target.ID, role); err != nil {
		return nil, fmt.Errorf("ロールの変更に失敗しました: %w", err)
	}
	target.Role = role

	s.record("change_role")
	slog.Info("user role changed",
		slog.String("user_id", target.ID),
		slog.String("role", role.String()),
		slog.String("changed_by", identity.ID),
	)
	return target, nil
}

// AdminDelete は管理者が対象ユーザーとそのコンテンツを削除する。自分自身は削除できない。
func (s *Service) AdminDelete(ctx context.Context, identity *model.Identity, targetID string) error {
	target, err := s.load(ctx, targetID)
	if err != nil {
		return err
	}
	if err := s.authz.CanPerform(identity, policy.ActionAdminDeleteUser, target); err != nil {
		return err
	}

	if err := s.userRepo.DeleteWithContent(ctx, target.ID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	s.record("admin_delete")
	slog.Info("user deleted by admin",
		slog.String("user_id", target.ID),
		slog.String("deleted_by", identity.ID),
	)
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*model.User, error) {
	key, ok := model.ParseID(id)
	if !ok {
		return nil, model.NewUserNotFoundError()
	}
	u, err := s.userRepo.FindByID(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}
	return u, nil
}

func (s *Service) record(operation string) {
	if s.recorder != nil {
		s.recorder.RecordContentChange("user", operation)
	}
}
