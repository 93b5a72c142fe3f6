// Package policy はリクエスト主体・操作・対象リソースから可否を判定する認可ポリシーを提供する。
package policy

import "github.com/hitoshi/postboard/internal/model"

// Action は認可対象の操作を表す閉じた列挙型。
// 操作を追加する場合はString、requiresOwnership、isUserManagementをすべて更新すること。
type Action uint8

const (
	ActionRead Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
	ActionListUsers
	ActionChangeRole
	ActionAdminDeleteUser
)

// String はメトリクス・ログ用の操作名を返す。
func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	case ActionListUsers:
		return "list_users"
	case ActionChangeRole:
		return "change_role"
	case ActionAdminDeleteUser:
		return "admin_delete_user"
	default:
		return "unknown"
	}
}

// requiresIdentity は操作に認証が必要かどうかを返す。未定義の操作は認証必須として扱う。
func (a Action) requiresIdentity() bool {
	switch a {
	case ActionRead:
		return false
	case ActionCreate, ActionUpdate, ActionDelete, ActionListUsers, ActionChangeRole, ActionAdminDeleteUser:
		return true
	default:
		return true
	}
}

// isUserManagement は管理者専用のユーザー管理操作かどうかを返す。
func (a Action) isUserManagement() bool {
	switch a {
	case ActionListUsers, ActionChangeRole, ActionAdminDeleteUser:
		return true
	case ActionRead, ActionCreate, ActionUpdate, ActionDelete:
		return false
	default:
		return false
	}
}

// isSelfGuarded は自分自身のアカウントを対象にできない操作かどうかを返す。
func (a Action) isSelfGuarded() bool {
	return a == ActionChangeRole || a == ActionAdminDeleteUser
}

// Resource は所有者を持つリソース。
type Resource interface {
	OwnerID() string
}

// Authorizer は認可判定のインターフェース。
type Authorizer interface {
	// CanPerform は許可ならnil、拒否ならAuthenticationRequiredまたはForbiddenのAPIErrorを返す。
	CanPerform(identity *model.Identity, action Action, resource Resource) error
}

// Policy はロールと所有関係に基づく認可ポリシー。
// 状態を持たないため並行利用に安全。
type Policy struct{}

// New はPolicyを生成する。
func New() *Policy {
	return &Policy{}
}

// CanPerform は最初に一致した規則で判定する。
//  1. 所有者を問わない操作（読み取り）は許可
//  2. 未認証は認証要求
//  3. 自分自身を対象とするロール変更・管理者削除はロールにかかわらず拒否
//  4. 管理者は許可
//  5. ユーザー管理操作は拒否
//  6. 作成は許可
//  7. 所有者は許可
//  8. それ以外は拒否
//
// 拒否理由はロール不足か所有者不一致かを区別しない。
func (p *Policy) CanPerform(identity *model.Identity, action Action, resource Resource) error {
	if !action.requiresIdentity() {
		return nil
	}
	if identity == nil {
		return model.NewAuthenticationRequiredError()
	}
	if action.isSelfGuarded() && resource != nil && resource.OwnerID() == identity.ID {
		return model.NewForbiddenError()
	}

	switch identity.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleUser:
		// 以下の規則で判定する
	case model.RoleUnknown:
		return model.NewForbiddenError()
	default:
		return model.NewForbiddenError()
	}

	if action.isUserManagement() {
		return model.NewForbiddenError()
	}
	if action == ActionCreate {
		return nil
	}
	if resource != nil && resource.OwnerID() == identity.ID {
		return nil
	}
	return model.NewForbiddenError()
}

// compile-time interface check
var _ Authorizer = (*Policy)(nil)
