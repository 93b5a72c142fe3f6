package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hitoshi/postboard/internal/model"
	"gorm.io/gorm"
)

// PostgresPostRepo はGORM経由でPostgreSQLを使用する投稿リポジトリ。
type PostgresPostRepo struct {
	db *gorm.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *gorm.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	var row postRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	return row.toModel(), nil
}

// List は投稿を作成日時の降順で返す。
func (r *PostgresPostRepo) List(ctx context.Context, offset, limit int) ([]*model.Post, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&postRecord{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("投稿数の取得に失敗しました: %w", err)
	}

	var rows []postRecord
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}

	posts := make([]*model.Post, len(rows))
	for i, row := range rows {
		posts[i] = row.toModel()
	}
	return posts, total, nil
}

// Create は投稿を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	row := postRecordFromModel(post)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return model.NewConflictError()
		}
		return fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は投稿のタイトルと本文を更新する。author_idは更新対象に含めない。
func (r *PostgresPostRepo) Update(ctx context.Context, post *model.Post) error {
	result := r.db.WithContext(ctx).Model(&postRecord{}).
		Where("id = ?", post.ID).
		Updates(map[string]any{
			"title":      post.Title,
			"content":    post.Content,
			"updated_at": post.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("投稿の更新に失敗しました: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.NewPostNotFoundError(post.ID)
	}
	return nil
}

// DeleteWithComments は投稿とそのコメントを同一トランザクションで削除する。
func (r *PostgresPostRepo) DeleteWithComments(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&commentRecord{}).Error; err != nil {
			return fmt.Errorf("コメントの削除に失敗しました: %w", err)
		}

		result := tx.Where("id = ?", id).Delete(&postRecord{})
		if result.Error != nil {
			return fmt.Errorf("投稿の削除に失敗しました: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return model.NewPostNotFoundError(id)
		}
		return nil
	})
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
