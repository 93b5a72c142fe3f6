package post

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/hitoshi/postboard/internal/model"
	"github.com/hitoshi/postboard/internal/policy"
	"github.com/hitoshi/postboard/internal/repository"
	"github.com/hitoshi/postboard/internal/security"
)

// --- モック ---

type mockPostRepo struct {
	findByIDFn           func(ctx context.Context, id string) (*model.Post, error)
	listFn               func(ctx context.Context, offset, limit int) ([]*model.Post, int64, error)
	createFn             func(ctx context.Context, p *model.Post) error
	updateFn             func(ctx context.Context, p *model.Post) error
	deleteWithCommentsFn func(ctx context.Context, id string) error
}

func (m *mockPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockPostRepo) List(ctx context.Context, offset, limit int) ([]*model.Post, int64, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockPostRepo) Create(ctx context.Context, p *model.Post) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	return nil
}

func (m *mockPostRepo) Update(ctx context.Context, p *model.Post) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, p)
	}
	return nil
}

func (m *mockPostRepo) DeleteWithComments(ctx context.Context, id string) error {
	if m.deleteWithCommentsFn != nil {
		return m.deleteWithCommentsFn(ctx, id)
	}
	return nil
}

var _ repository.PostRepository = (*mockPostRepo)(nil)

type changeLog struct{ ops []string }

func (c *changeLog) RecordContentChange(resource, operation string) {
	c.ops = append(c.ops, resource+":"+operation)
}

var (
	owner    = &model.Identity{ID: "owner", Email: "owner@example.com", Role: model.RoleUser}
	stranger = &model.Identity{ID: "stranger", Email: "stranger@example.com", Role: model.RoleUser}
	admin    = &model.Identity{ID: "admin", Email: "admin@example.com", Role: model.RoleAdmin}
)

const (
	postID    = "3f6b9c2e-1d4a-4e8b-9c7d-5a2f1e0b6c11"
	missingID = "9a0e7d4c-6b2f-4a1e-8d3c-7f5b2e1a0c99"
)

func existingPost() *model.Post {
	return &model.Post{ID: postID, AuthorID: owner.ID, Title: "題名", Content: "本文"}
}

func newTestService(repo repository.PostRepository, rec ChangeRecorder) *Service {
	return NewService(repo, policy.New(), security.NewContentSanitizer(), rec)
}

// --- テスト ---

func TestList_AnonymousAllowedAndClampsPaging(t *testing.T) {
	var gotOffset, gotLimit int
	repo := &mockPostRepo{
		listFn: func(_ context.Context, offset, limit int) ([]*model.Post, int64, error) {
			gotOffset, gotLimit = offset, limit
			return []*model.Post{existingPost()}, 41, nil
		},
	}
	svc := newTestService(repo, nil)

	page, err := svc.List(context.Background(), nil, 3, 500)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if gotLimit != MaxLimit || gotOffset != 2*MaxLimit {
		t.Errorf("offset/limit = %d/%d, want %d/%d", gotOffset, gotLimit, 2*MaxLimit, MaxLimit)
	}
	if page.Total != 41 || page.Page != 3 || page.Limit != MaxLimit {
		t.Errorf("page = %+v", page)
	}

	_, _ = svc.List(context.Background(), nil, 0, 0)
	if gotOffset != 0 || gotLimit != DefaultLimit {
		t.Errorf("defaults offset/limit = %d/%d, want 0/%d", gotOffset, gotLimit, DefaultLimit)
	}
}

// TestList_HugePageDoesNotOverflowOffset はオフセットが溢れる大きなpageを丸め、ページ番号とオフセットが一致することを検証する。
func TestList_HugePageDoesNotOverflowOffset(t *testing.T) {
	gotOffset := -1
	repo := &mockPostRepo{
		listFn: func(_ context.Context, offset, _ int) ([]*model.Post, int64, error) {
			gotOffset = offset
			return nil, 3, nil
		},
	}
	svc := newTestService(repo, nil)

	page, err := svc.List(context.Background(), nil, math.MaxInt, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if gotOffset < 0 {
		t.Fatalf("offset = %d, want non-negative", gotOffset)
	}
	if page.Page != math.MaxInt/10 {
		t.Errorf("Page = %d, want %d", page.Page, math.MaxInt/10)
	}
	if gotOffset != (page.Page-1)*page.Limit {
		t.Errorf("offset = %d, want %d for page %d", gotOffset, (page.Page-1)*page.Limit, page.Page)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(&mockPostRepo{}, nil)

	_, err := svc.Get(context.Background(), nil, missingID)
	if model.KindOf(err) != model.KindNotFound {
		t.Errorf("Get(missing) = %v, want not found", err)
	}
}

func TestCreate_SetsAuthorAndSanitizes(t *testing.T) {
	var stored *model.Post
	rec := &changeLog{}
	repo := &mockPostRepo{
		createFn: func(_ context.Context, p *model.Post) error {
			stored = p
			return nil
		},
	}
	svc := newTestService(repo, rec)

	p, err := svc.Create(context.Background(), stranger, Input{
		Title:   "<b>こんにちは</b>",
		Content: `<p>本文</p><script>alert(1)</script>`,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if stored == nil || stored.AuthorID != stranger.ID {
		t.Fatalf("stored = %+v, want author %s", stored, stranger.ID)
	}
	if p.Title != "こんにちは" {
		t.Errorf("Title = %q, want tags stripped", p.Title)
	}
	if p.Content != "<p>本文</p>" {
		t.Errorf("Content = %q, want sanitized", p.Content)
	}
	if p.ID == "" || p.CreatedAt.IsZero() {
		t.Error("expected generated ID and timestamp")
	}
	if len(rec.ops) != 1 || rec.ops[0] != "post:create" {
		t.Errorf("recorded = %v, want [post:create]", rec.ops)
	}
}

func TestCreate_AnonymousRejected(t *testing.T) {
	repo := &mockPostRepo{
		createFn: func(_ context.Context, _ *model.Post) error {
			t.Error("Create must not be called")
			return nil
		},
	}
	svc := newTestService(repo, nil)

	_, err := svc.Create(context.Background(), nil, Input{Title: "t", Content: "c"})
	if model.KindOf(err) != model.KindAuthenticationRequired {
		t.Errorf("Create(anonymous) = %v, want authentication required", err)
	}
}

func TestCreate_EmptyAfterSanitizeIsValidationError(t *testing.T) {
	svc := newTestService(&mockPostRepo{}, nil)

	_, err := svc.Create(context.Background(), owner, Input{Title: "<script>x</script>", Content: "本文"})
	if model.KindOf(err) != model.KindValidation {
		t.Errorf("Create(empty title) = %v, want validation", err)
	}
}

func TestUpdate_OwnerAndAdminAllowed(t *testing.T) {
	for _, who := range []*model.Identity{owner, admin} {
		var updated *model.Post
		repo := &mockPostRepo{
			findByIDFn: func(_ context.Context, _ string) (*model.Post, error) { return existingPost(), nil },
			updateFn: func(_ context.Context, p *model.Post) error {
				updated = p
				return nil
			},
		}
		svc := newTestService(repo, nil)

		p, err := svc.Update(context.Background(), who, postID, Input{Title: "新題名", Content: "新本文"})
		if err != nil {
			t.Fatalf("%s: Update failed: %v", who.ID, err)
		}
		if updated == nil || p.Title != "新題名" {
			t.Errorf("%s: updated = %+v", who.ID, updated)
		}
		if p.AuthorID != owner.ID {
			t.Errorf("%s: AuthorID = %q, want unchanged %q", who.ID, p.AuthorID, owner.ID)
		}
	}
}

func TestUpdate_NonOwnerForbidden(t *testing.T) {
	repo := &mockPostRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.Post, error) { return existingPost(), nil },
		updateFn: func(_ context.Context, _ *model.Post) error {
			t.Error("Update must not be called")
			return nil
		},
	}
	svc := newTestService(repo, nil)

	_, err := svc.Update(context.Background(), stranger, postID, Input{Title: "x", Content: "y"})
	if model.KindOf(err) != model.KindForbidden {
		t.Errorf("Update(stranger) = %v, want forbidden", err)
	}
}

// TestMutations_NotFoundBeforeAuthorization は存在しない投稿への変更がIdentityにかかわらずNotFoundになることを検証する。
func TestMutations_NotFoundBeforeAuthorization(t *testing.T) {
	svc := newTestService(&mockPostRepo{}, nil)
	ctx := context.Background()

	for _, who := range []*model.Identity{nil, stranger, owner, admin} {
		if _, err := svc.Update(ctx, who, missingID, Input{Title: "t", Content: "c"}); model.KindOf(err) != model.KindNotFound {
			t.Errorf("Update as %v = %v, want not found", who, err)
		}
		if err := svc.Delete(ctx, who, missingID); model.KindOf(err) != model.KindNotFound {
			t.Errorf("Delete as %v = %v, want not found", who, err)
		}
	}
}

func TestDelete_CascadesThroughRepository(t *testing.T) {
	var deleted string
	rec := &changeLog{}
	repo := &mockPostRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.Post, error) { return existingPost(), nil },
		deleteWithCommentsFn: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc := newTestService(repo, rec)

	if err := svc.Delete(context.Background(), admin, postID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted != postID {
		t.Errorf("deleted = %q, want %q", deleted, postID)
	}
	if len(rec.ops) != 1 || rec.ops[0] != "post:delete" {
		t.Errorf("recorded = %v, want [post:delete]", rec.ops)
	}
}

func TestDelete_StoreFailureIsInternal(t *testing.T) {
	repo := &mockPostRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.Post, error) { return existingPost(), nil },
		deleteWithCommentsFn: func(_ context.Context, _ string) error {
			return errors.New("tx aborted")
		},
	}
	svc := newTestService(repo, nil)

	err := svc.Delete(context.Background(), owner, postID)
	if err == nil || model.KindOf(err) != model.KindInternal {
		t.Errorf("Delete = %v, want internal error", err)
	}
}

// TestMalformedID_IsNotFound はUUIDとして解釈できないIDがストアに渡らずNotFoundになることを検証する。
func TestMalformedID_IsNotFound(t *testing.T) {
	repo := &mockPostRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Post, error) {
			t.Errorf("FindByID must not be called, got %q", id)
			return nil, nil
		},
	}
	svc := newTestService(repo, nil)
	ctx := context.Background()

	for _, id := range []string{"abc", "123", "", "post-1"} {
		if _, err := svc.Get(ctx, nil, id); model.KindOf(err) != model.KindNotFound {
			t.Errorf("Get(%q) = %v, want not found", id, err)
		}
		for _, who := range []*model.Identity{nil, stranger, admin} {
			if _, err := svc.Update(ctx, who, id, Input{Title: "t", Content: "c"}); model.KindOf(err) != model.KindNotFound {
				t.Errorf("Update(%q) as %v = %v, want not found", id, who, err)
			}
			if err := svc.Delete(ctx, who, id); model.KindOf(err) != model.KindNotFound {
				t.Errorf("Delete(%q) as %v = %v, want not found", id, who, err)
			}
		}
	}
}

func TestGet_NormalizesIDBeforeLookup(t *testing.T) {
	var looked string
	repo := &mockPostRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Post, error) {
			looked = id
			return existingPost(), nil
		},
	}
	svc := newTestService(repo, nil)

	if _, err := svc.Get(context.Background(), nil, strings.ToUpper(postID)); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if looked != postID {
		t.Errorf("FindByID(%q), want %q", looked, postID)
	}
}
