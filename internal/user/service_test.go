package user

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/postboard/internal/model"
	"github.com/hitoshi/postboard/internal/policy"
	"github.com/hitoshi/postboard/internal/repository"
)

// --- モック ---

type mockUserRepo struct {
	users               map[string]*model.User
	listFn              func(ctx context.Context) ([]*model.User, error)
	updateRoleFn        func(ctx context.Context, id string, role model.Role) error
	deleteWithContentFn func(ctx context.Context, id string) error
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, _ string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(_ context.Context, _ *model.User) error {
	return nil
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, id string, role model.Role) error {
	if m.updateRoleFn != nil {
		return m.updateRoleFn(ctx, id, role)
	}
	return nil
}

func (m *mockUserRepo) DeleteWithContent(ctx context.Context, id string) error {
	if m.deleteWithContentFn != nil {
		return m.deleteWithContentFn(ctx, id)
	}
	return nil
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

const (
	adminUID = "0b7e5c1a-2d3f-4e6a-8b9c-1d2e3f4a5b01"
	aliceUID = "0b7e5c1a-2d3f-4e6a-8b9c-1d2e3f4a5b02"
	bobUID   = "0b7e5c1a-2d3f-4e6a-8b9c-1d2e3f4a5b03"
	ghostUID = "0b7e5c1a-2d3f-4e6a-8b9c-1d2e3f4a5b99"
)

var (
	adminID = &model.Identity{ID: adminUID, Email: "admin@example.com", Role: model.RoleAdmin}
	aliceID = &model.Identity{ID: aliceUID, Email: "alice@example.com", Role: model.RoleUser}
)

func newRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]*model.User{
		adminUID: {ID: adminUID, Email: "admin@example.com", Role: model.RoleAdmin},
		aliceUID: {ID: aliceUID, Email: "alice@example.com", Role: model.RoleUser},
		bobUID:   {ID: bobUID, Email: "bob@example.com", Role: model.RoleUser},
	}}
}

// --- テスト ---

func TestMe_ReturnsCurrentRecord(t *testing.T) {
	svc := NewService(newRepo(), policy.New(), nil)

	u, err := svc.Me(context.Background(), aliceID)
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("Email = %q, want alice@example.com", u.Email)
	}

	if _, err := svc.Me(context.Background(), nil); model.KindOf(err) != model.KindAuthenticationRequired {
		t.Errorf("Me(nil) = %v, want authentication required", err)
	}
}

func TestWithdraw_DeletesOwnAccount(t *testing.T) {
	var deleted string
	repo := newRepo()
	repo.deleteWithContentFn = func(_ context.Context, id string) error {
		deleted = id
		return nil
	}
	svc := NewService(repo, policy.New(), nil)

	if err := svc.Withdraw(context.Background(), aliceID); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if deleted != aliceUID {
		t.Errorf("deleted = %q, want %q", deleted, aliceUID)
	}
}

func TestWithdraw_UserNotFound(t *testing.T) {
	svc := NewService(newRepo(), policy.New(), nil)

	ghost := &model.Identity{ID: ghostUID, Role: model.RoleUser}
	if err := svc.Withdraw(context.Background(), ghost); model.KindOf(err) != model.KindNotFound {
		t.Errorf("Withdraw(ghost) = %v, want not found", err)
	}
}

func TestWithdraw_DeleteError(t *testing.T) {
	repo := newRepo()
	repo.deleteWithContentFn = func(_ context.Context, _ string) error {
		return errors.New("tx aborted")
	}
	svc := NewService(repo, policy.New(), nil)

	if err := svc.Withdraw(context.Background(), aliceID); err == nil {
		t.Fatal("expected error")
	}
}

func TestList_AdminOnly(t *testing.T) {
	repo := newRepo()
	repo.listFn = func(_ context.Context) ([]*model.User, error) {
		return []*model.User{{ID: aliceUID}, {ID: bobUID}}, nil
	}
	svc := NewService(repo, policy.New(), nil)

	users, err := svc.List(context.Background(), adminID)
	if err != nil {
		t.Fatalf("List(admin) failed: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("len = %d, want 2", len(users))
	}

	if _, err := svc.List(context.Background(), aliceID); model.KindOf(err) != model.KindForbidden {
		t.Errorf("List(user) = %v, want forbidden", err)
	}
	if _, err := svc.List(context.Background(), nil); model.KindOf(err) != model.KindAuthenticationRequired {
		t.Errorf("List(anonymous) = %v, want authentication required", err)
	}
}

func TestChangeRole_AdminPromotesOther(t *testing.T) {
	var gotID string
	var gotRole model.Role
	repo := newRepo()
	repo.updateRoleFn = func(_ context.Context, id string, role model.Role) error {
		gotID, gotRole = id, role
		return nil
	}
	svc := NewService(repo, policy.New(), nil)

	u, err := svc.ChangeRole(context.Background(), adminID, bobUID, model.RoleAdmin)
	if err != nil {
		t.Fatalf("ChangeRole failed: %v", err)
	}
	if gotID != bobUID || gotRole != model.RoleAdmin || u.Role != model.RoleAdmin {
		t.Errorf("UpdateRole(%q, %v), user role %v; want bob admin", gotID, gotRole, u.Role)
	}
}

func TestChangeRole_SelfIsForbidden(t *testing.T) {
	repo := newRepo()
	repo.updateRoleFn = func(_ context.Context, _ string, _ model.Role) error {
		t.Error("UpdateRole must not be called")
		return nil
	}
	svc := NewService(repo, policy.New(), nil)

	_, err := svc.ChangeRole(context.Background(), adminID, adminID.ID, model.RoleUser)
	if model.KindOf(err) != model.KindForbidden {
		t.Errorf("ChangeRole(self) = %v, want forbidden", err)
	}
}

func TestChangeRole_UserForbiddenAndUnknownRoleRejected(t *testing.T) {
	svc := NewService(newRepo(), policy.New(), nil)

	if _, err := svc.ChangeRole(context.Background(), aliceID, bobUID, model.RoleAdmin); model.KindOf(err) != model.KindForbidden {
		t.Errorf("ChangeRole(user) = %v, want forbidden", err)
	}
	if _, err := svc.ChangeRole(context.Background(), adminID, bobUID, model.RoleUnknown); model.KindOf(err) != model.KindValidation {
		t.Errorf("ChangeRole(unknown role) = %v, want validation", err)
	}
	if _, err := svc.ChangeRole(context.Background(), adminID, ghostUID, model.RoleAdmin); model.KindOf(err) != model.KindNotFound {
		t.Errorf("ChangeRole(ghost) = %v, want not found", err)
	}
}

func TestAdminDelete(t *testing.T) {
	var deleted []string
	repo := newRepo()
	repo.deleteWithContentFn = func(_ context.Context, id string) error {
		deleted = append(deleted, id)
		return nil
	}
	svc := NewService(repo, policy.New(), nil)
	ctx := context.Background()

	if err := svc.AdminDelete(ctx, adminID, bobUID); err != nil {
		t.Fatalf("AdminDelete(bob) failed: %v", err)
	}
	if err := svc.AdminDelete(ctx, adminID, adminID.ID); model.KindOf(err) != model.KindForbidden {
		t.Errorf("AdminDelete(self) = %v, want forbidden", err)
	}
	if err := svc.AdminDelete(ctx, aliceID, bobUID); model.KindOf(err) != model.KindForbidden {
		t.Errorf("AdminDelete as user = %v, want forbidden", err)
	}
	if err := svc.AdminDelete(ctx, aliceID, ghostUID); model.KindOf(err) != model.KindNotFound {
		t.Errorf("AdminDelete(ghost) = %v, want not found", err)
	}
	if len(deleted) != 1 || deleted[0] != bobUID {
		t.Errorf("deleted = %v, want [%s]", deleted, bobUID)
	}
}

// TestMalformedTargetID_IsNotFound はUUIDとして解釈できない対象IDがストアに渡らずNotFoundになることを検証する。
func TestMalformedTargetID_IsNotFound(t *testing.T) {
	repo := newRepo()
	repo.updateRoleFn = func(_ context.Context, _ string, _ model.Role) error {
		t.Error("UpdateRole must not be called")
		return nil
	}
	repo.deleteWithContentFn = func(_ context.Context, _ string) error {
		t.Error("DeleteWithContent must not be called")
		return nil
	}
	svc := NewService(repo, policy.New(), nil)
	ctx := context.Background()

	for _, id := range []string{"abc", "123", "bob"} {
		for _, who := range []*model.Identity{adminID, aliceID, nil} {
			if _, err := svc.ChangeRole(ctx, who, id, model.RoleAdmin); model.KindOf(err) != model.KindNotFound {
				t.Errorf("ChangeRole(%q) as %v = %v, want not found", id, who, err)
			}
			if err := svc.AdminDelete(ctx, who, id); model.KindOf(err) != model.KindNotFound {
				t.Errorf("AdminDelete(%q) as %v = %v, want not found", id, who, err)
			}
		}
	}
}
