package repository

import (
	"errors"
	"time"

	"github.com/hitoshi/postboard/internal/model"
	"github.com/lib/pq"
)

// uniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolation = "23505"

// userRecord はusersテーブルの行を表すGORMモデル。
type userRecord struct {
	ID           string `gorm:"primaryKey;type:uuid"`
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRecord) TableName() string { return "users" }

// postRecord はpostsテーブルの行を表すGORMモデル。
type postRecord struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	AuthorID  string `gorm:"type:uuid"`
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (postRecord) TableName() string { return "posts" }

// commentRecord はcommentsテーブルの行を表すGORMモデル。
type commentRecord struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	PostID    string `gorm:"type:uuid"`
	AuthorID  string `gorm:"type:uuid"`
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (commentRecord) TableName() string { return "comments" }

func userRecordFromModel(u *model.User) userRecord {
	return userRecord{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role.String(),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r userRecord) toModel() (*model.User, error) {
	role, err := model.ParseRole(r.Role)
	if err != nil {
		return nil, err
	}
	return &model.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         role,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}

func postRecordFromModel(p *model.Post) postRecord {
	return postRecord{
		ID:        p.ID,
		AuthorID:  p.AuthorID,
		Title:     p.Title,
		Content:   p.Content,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (r postRecord) toModel() *model.Post {
	return &model.Post{
		ID:        r.ID,
		AuthorID:  r.AuthorID,
		Title:     r.Title,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func commentRecordFromModel(c *model.Comment) commentRecord {
	return commentRecord{
		ID:        c.ID,
		PostID:    c.PostID,
		AuthorID:  c.AuthorID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (r commentRecord) toModel() *model.Comment {
	return &model.Comment{
		ID:        r.ID,
		PostID:    r.PostID,
		AuthorID:  r.AuthorID,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// isUniqueViolation はlib/pqのエラーが一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
