package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/postboard/internal/model"
)

// トークン検証の失敗理由。呼び出し側はerrors.Isで判定する。
var (
	// ErrInvalidToken は署名不一致・アルゴリズム不一致・発行者不一致・形式不正のトークン。
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired は有効期限を過ぎたトークン。
	ErrTokenExpired = errors.New("token expired")
)

// TokenConfig はトークンサービスの設定。
type TokenConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
	// Now はテスト用に差し替え可能な時計。nilの場合はtime.Nowを使う。
	Now func() time.Time
}

// claims はトークンに埋め込むクレーム。
// subにユーザーIDを入れ、email・roleは発行時点のスナップショット。
type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService はHS256署名のベアラートークンを発行・検証する。
// 保持するのは読み取り専用の設定のみで、並行利用に安全。
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenService はTokenServiceを生成する。
func NewTokenService(cfg TokenConfig) *TokenService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &TokenService{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		now:    now,
	}
}

// Issue はIdentityに対するトークンを発行し、トークン文字列と有効期限を返す。
func (s *TokenService) Issue(identity *model.Identity) (string, time.Time, error) {
	if identity == nil || identity.ID == "" {
		return "", time.Time{}, errors.New("identity is required")
	}
	if !identity.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("cannot issue token for role %v", identity.Role)
	}

	now := s.now()
	issuedAt := jwt.NewNumericDate(now)
	expiresAt := jwt.NewNumericDate(now.Add(s.ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: identity.Email,
		Role:  identity.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			Issuer:    s.issuer,
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt.Time, nil
}

// Verify はトークンを検証し、埋め込まれたIdentityを返す。ストレージには問い合わせない。
// 有効期限はexpの時刻ちょうどで失効する。
func (s *TokenService) Verify(tokenString string) (*model.Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(tokenString, &c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, ErrInvalidToken
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrInvalidToken
		}
	}

	if c.Subject == "" {
		return nil, ErrInvalidToken
	}
	role, err := model.ParseRole(c.Role)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &model.Identity{
		ID:    c.Subject,
		Email: c.Email,
		Role:  role,
	}, nil
}
