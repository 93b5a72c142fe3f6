package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hitoshi/postboard/internal/model"
	"gorm.io/gorm"
)

// PostgresCommentRepo はGORM経由でPostgreSQLを使用するコメントリポジトリ。
type PostgresCommentRepo struct {
	db *gorm.DB
}

// NewPostgresCommentRepo はPostgresCommentRepoを生成する。
func NewPostgresCommentRepo(db *gorm.DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

// FindByID は指定IDのコメントを取得する。見つからない場合はnilを返す。
func (r *PostgresCommentRepo) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	var row commentRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("コメントの取得に失敗しました: %w", err)
	}
	return row.toModel(), nil
}

// ListByPostID は投稿に付いたコメントを作成日時の昇順で返す。
func (r *PostgresCommentRepo) ListByPostID(ctx context.Context, postID string) ([]*model.Comment, error) {
	var rows []commentRecord
	if err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}

	comments := make([]*model.Comment, len(rows))
	for i, row := range rows {
		comments[i] = row.toModel()
	}
	return comments, nil
}

// Create はコメントを作成する。
func (r *PostgresCommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	row := commentRecordFromModel(comment)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return model.NewConflictError()
		}
		return fmt.Errorf("コメントの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はコメント本文を更新する。post_id、author_idは更新対象に含めない。
func (r *PostgresCommentRepo) Update(ctx context.Context, comment *model.Comment) error {
	result := r.db.WithContext(ctx).Model(&commentRecord{}).
		Where("id = ?", comment.ID).
		Updates(map[string]any{
			"content":    comment.Content,
			"updated_at": comment.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("コメントの更新に失敗しました: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.NewCommentNotFoundError(comment.ID)
	}
	return nil
}

// DeleteByID は指定IDのコメントを削除する。
func (r *PostgresCommentRepo) DeleteByID(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&commentRecord{})
	if result.Error != nil {
		return fmt.Errorf("コメントの削除に失敗しました: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.NewCommentNotFoundError(id)
	}
	return nil
}

// compile-time interface check
var _ CommentRepository = (*PostgresCommentRepo)(nil)
