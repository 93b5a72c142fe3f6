// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
	"time"
)

// Role はユーザーの権限ロールを表す閉じた列挙型。
// ロールを追加する場合はParseRole、String、およびRoleを網羅するswitch文をすべて更新すること。
type Role uint8

const (
	// RoleUnknown は未定義のロール。検証済みのIdentityがこの値を持つことはない。
	RoleUnknown Role = iota
	// RoleUser は一般ユーザー。自身が所有するリソースのみ変更できる。
	RoleUser
	// RoleAdmin は管理者。所有者チェックを無条件に満たす。
	RoleAdmin
)

// String はロールの永続化・トークン用の文字列表現を返す。
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	case RoleUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Valid はロールが定義済みの値かどうかを返す。
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	case RoleUnknown:
		return false
	default:
		return false
	}
}

// ParseRole は文字列からRoleを解析する。未定義の値はエラーを返す。
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return RoleUnknown, fmt.Errorf("unknown role: %q", s)
	}
}

// User はサービス利用ユーザー（クレデンシャルストアのレコード）を表す。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OwnerID はユーザーレコードの所有者IDを返す。ユーザーレコードは自分自身が所有する。
func (u *User) OwnerID() string {
	return u.ID
}

// Identity は認証済みのリクエスト主体を表す。
// 検証済みトークンから構築され、リクエストの入力値から直接作られることはない。
type Identity struct {
	ID    string
	Email string
	Role  Role
}

// IsAdmin は管理者ロールかどうかを返す。
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// IdentityOf はユーザーレコードの現在の状態からIdentityを構築する。
func IdentityOf(u *User) *Identity {
	return &Identity{
		ID:    u.ID,
		Email: u.Email,
		Role:  u.Role,
	}
}
