// Package repository はデータ永続化のインターフェースとGORMによるPostgreSQL実装を定義する。
package repository

import (
	"context"

	"github.com/hitoshi/postboard/internal/model"
)

// UserRepository はユーザーデータ（クレデンシャルストア）の永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレス（大文字小文字を区別しない）でユーザーを取得する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// List は全ユーザーを作成日時の昇順で返す。
	List(ctx context.Context) ([]*model.User, error)

	// Create はユーザーを作成する。メールアドレスが重複する場合はConflictのAPIErrorを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateRole はユーザーのロールを更新する。対象が存在しない場合はNotFoundのAPIErrorを返す。
	UpdateRole(ctx context.Context, id string, role model.Role) error

	// DeleteWithContent はユーザーと、そのユーザーの投稿・コメント、
	// およびその投稿に付いた他ユーザーのコメントを同一トランザクションで削除する。
	DeleteWithContent(ctx context.Context, id string) error
}

// PostRepository は投稿データの永続化インターフェース。
type PostRepository interface {
	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// List は投稿を作成日時の降順でoffset/limit指定で返す。総件数も返す。
	List(ctx context.Context, offset, limit int) ([]*model.Post, int64, error)

	// Create は投稿を作成する。
	Create(ctx context.Context, post *model.Post) error

	// Update は投稿のタイトルと本文を更新する。作成者は変更しない。
	// 対象が存在しない場合はNotFoundのAPIErrorを返す。
	Update(ctx context.Context, post *model.Post) error

	// DeleteWithComments は投稿とその投稿に付いたコメントを同一トランザクションで削除する。
	// 途中で失敗した場合はいずれも削除されない。
	DeleteWithComments(ctx context.Context, id string) error
}

// CommentRepository はコメントデータの永続化インターフェース。
type CommentRepository interface {
	// FindByID は指定IDのコメントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Comment, error)

	// ListByPostID は投稿に付いたコメントを作成日時の昇順で返す。
	ListByPostID(ctx context.Context, postID string) ([]*model.Comment, error)

	// Create はコメントを作成する。
	Create(ctx context.Context, comment *model.Comment) error

	// Update はコメント本文を更新する。作成者と投稿は変更しない。
	// 対象が存在しない場合はNotFoundのAPIErrorを返す。
	Update(ctx context.Context, comment *model.Comment) error

	// DeleteByID は指定IDのコメントを削除する。対象が存在しない場合はNotFoundのAPIErrorを返す。
	DeleteByID(ctx context.Context, id string) error
}
