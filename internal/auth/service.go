// Package auth はパスワード認証とベアラートークンの発行・検証を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/postboard/internal/model"
	"github.com/hitoshi/postboard/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	BcryptCost int
}

// LoginResult はログイン成功時の結果。
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// Service は登録・ログインに関するビジネスロジックを提供する。
type Service struct {
	userRepo  repository.UserRepository
	tokens    *TokenService
	config    ServiceConfig
	dummyHash string
	now       func() time.Time
}

// NewService はServiceを生成する。
// 存在しないメールアドレスでのログインでも同等の計算量になるよう、比較用のダミーハッシュを事前に作る。
func NewService(userRepo repository.UserRepository, tokens *TokenService, config ServiceConfig) (*Service, error) {
	dummy, err := HashPassword(uuid.NewString(), config.BcryptCost)
	if err != nil {
		return nil, err
	}
	return &Service{
		userRepo:  userRepo,
		tokens:    tokens,
		config:    config,
		dummyHash: dummy,
		now:       time.Now,
	}, nil
}

// NormalizeEmail はメールアドレスを比較・保存用に正規化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register は一般ユーザーを登録する。メールアドレスが登録済みの場合はConflictを返す。
func (s *Service) Register(ctx context.Context, email, password string) (*model.User, error) {
	return s.createUser(ctx, NormalizeEmail(email), password, model.RoleUser)
}

// Login はメールアドレスとパスワードを検証し、トークンを発行する。
// 失敗理由（未登録・パスワード不一致）は区別せずInvalidCredentialsを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		ComparePassword(s.dummyHash, password)
		return nil, model.NewInvalidCredentialsError()
	}
	if !ComparePassword(user.PasswordHash, password) {
		return nil, model.NewInvalidCredentialsError()
	}

	token, expiresAt, err := s.tokens.Issue(model.IdentityOf(user))
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// EnsureAdmin は指定メールアドレスの管理者を用意する。
// 未登録なら管理者として作成し、登録済みなら管理者に昇格する。作成した場合はtrueを返す。
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (*model.User, bool, error) {
	email = NormalizeEmail(email)

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("failed to find user: %w", err)
	}
	if existing != nil {
		if existing.Role != model.RoleAdmin {
			if err := s.userRepo.UpdateRole(ctx, existing.ID, model.RoleAdmin); err != nil {
				return nil, false, fmt.Errorf("failed to promote user: %w", err)
			}
			existing.Role = model.RoleAdmin
			slog.Info("user promoted to admin", slog.String("user_id", existing.ID))
		}
		return existing, false, nil
	}

	user, err := s.createUser(ctx, email, password, model.RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *Service) createUser(ctx context.Context, email, password string, role model.Role) (*model.User, error) {
	// bcryptの上限は文字数ではなくバイト数で効く
	if len(password) > MaxPasswordBytes {
		return nil, model.NewValidationError(fmt.Sprintf("パスワードは%dバイト以内で指定してください", MaxPasswordBytes))
	}

	hash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if model.KindOf(err) == model.KindConflict {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("role", role.String()),
	)
	return user, nil
}
