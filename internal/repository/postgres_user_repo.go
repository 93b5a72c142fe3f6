package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/postboard/internal/model"
	"gorm.io/gorm"
)

// PostgresUserRepo はGORM経由でPostgreSQLを使用するユーザーリポジトリ。
type PostgresUserRepo struct {
	db *gorm.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *gorm.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	var row userRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return row.toModel()
}

// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var row userRecord
	err := r.db.WithContext(ctx).
		Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return row.toModel()
}

// List は全ユーザーを作成日時の昇順で返す。
func (r *PostgresUserRepo) List(ctx context.Context) ([]*model.User, error) {
	var rows []userRecord
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*model.User, 0, len(rows))
	for _, row := range rows {
		u, err := row.toModel()
		if err != nil {
			return nil, fmt.Errorf("failed to decode user %s: %w", row.ID, err)
		}
		users = append(users, u)
	}
	return users, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	row := userRecordFromModel(user)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return model.NewEmailTakenError()
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// UpdateRole はユーザーのロールを更新する。
func (r *PostgresUserRepo) UpdateRole(ctx context.Context, id string, role model.Role) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role: %v", role)
	}

	result := r.db.WithContext(ctx).Model(&userRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"role":       role.String(),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update user role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.NewUserNotFoundError()
	}
	return nil
}

// DeleteWithContent はユーザーと関連コンテンツを同一トランザクションで削除する。
// 削除順序: ユーザーの投稿に付いたコメント → ユーザーのコメント → ユーザーの投稿 → ユーザー
func (r *PostgresUserRepo) DeleteWithContent(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ownPosts := tx.Model(&postRecord{}).Select("id").Where("author_id = ?", id)

		if err := tx.Where("post_id IN (?)", ownPosts).Delete(&commentRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments on user posts: %w", err)
		}
		if err := tx.Where("author_id = ?", id).Delete(&commentRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete user comments: %w", err)
		}
		if err := tx.Where("author_id = ?", id).Delete(&postRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete user posts: %w", err)
		}

		result := tx.Where("id = ?", id).Delete(&userRecord{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return model.NewUserNotFoundError()
		}
		return nil
	})
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
