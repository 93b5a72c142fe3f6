package model

import "time"

// Post は投稿を表す。AuthorIDは作成時に設定され、以後変更されない。
type Post struct {
	ID        string
	AuthorID  string
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnerID は投稿の所有者（作成者）IDを返す。
func (p *Post) OwnerID() string {
	return p.AuthorID
}

// Comment は投稿に対するコメントを表す。
// 親の投稿が削除されると同一トランザクションで削除される。
type Comment struct {
	ID        string
	PostID    string
	AuthorID  string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnerID はコメントの所有者（作成者）IDを返す。
func (c *Comment) OwnerID() string {
	return c.AuthorID
}

// PostPage は投稿一覧の1ページ分を表す。
type PostPage struct {
	Posts []*Post
	Total int64
	Page  int
	Limit int
}
