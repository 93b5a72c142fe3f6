// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/postboard/internal/auth"
	"github.com/hitoshi/postboard/internal/model"
)

// errMissingCredential はAuthorizationヘッダーが無いことを表す。
var errMissingCredential = errors.New("missing credential")

// TokenVerifier はベアラートークンの検証に必要なインターフェース。
type TokenVerifier interface {
	Verify(token string) (*model.Identity, error)
}

// IdentityResolver はトークンの主体を現在のユーザーレコードに解決するためのインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type IdentityResolver interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// AuthFailureRecorder は認証失敗を記録する。
type AuthFailureRecorder interface {
	RecordAuthFailure(reason string)
}

// Authenticator はAuthorizationヘッダーのベアラートークンからIdentityを確立する。
type Authenticator struct {
	verifier TokenVerifier
	users    IdentityResolver
	errors   *ErrorWriter
	recorder AuthFailureRecorder
}

// NewAuthenticator はAuthenticatorを生成する。recorderはnilでもよい。
func NewAuthenticator(verifier TokenVerifier, users IdentityResolver, errWriter *ErrorWriter, recorder AuthFailureRecorder) *Authenticator {
	return &Authenticator{
		verifier: verifier,
		users:    users,
		errors:   errWriter,
		recorder: recorder,
	}
}

// Authenticate は認証ミドルウェアを返す。
//
// required=falseの場合（公開ルート）、資格情報が無い・無効なリクエストは匿名として通過させる。
// required=trueの場合（保護ルート）、資格情報が無い・無効なリクエストには401を返す。
// どちらのモードでもユーザーストアの障害は500を返す。
func (a *Authenticator) Authenticate(required bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IdentityFromContext(r.Context()) != nil {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := a.Resolve(r)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
			case isCredentialError(err):
				if errors.Is(err, errMissingCredential) {
					if required {
						a.recordFailure("missing")
					}
				} else {
					a.recordFailure(failureReason(err))
					slog.Debug("bearer token rejected",
						slog.String("path", r.URL.Path),
						slog.String("reason", failureReason(err)),
					)
				}
				if required {
					WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
					return
				}
				next.ServeHTTP(w, r)
			default:
				a.errors.Write(w, r, err)
			}
		})
	}
}

// Resolve はリクエストのベアラートークンを検証し、ユーザーストアから現在のIdentityを解決する。
// トークンのクレームは主体の特定にのみ使い、ID・メールアドレス・ロールはストアの値を採用する。
// 主体が既に存在しない場合はauth.ErrInvalidTokenを返す。
func (a *Authenticator) Resolve(r *http.Request) (*model.Identity, error) {
	token, err := bearerToken(r)
	if err != nil {
		return nil, err
	}

	claimed, err := a.verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := a.users.FindByID(r.Context(), claimed.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve identity: %w", err)
	}
	if user == nil {
		return nil, errUnknownAccount
	}
	return model.IdentityOf(user), nil
}

// errUnknownAccount は有効なトークンの主体が既に存在しないことを表す。
var errUnknownAccount = fmt.Errorf("%w: account no longer exists", auth.ErrInvalidToken)

// bearerToken はAuthorizationヘッダーからトークンを取り出す。
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingCredential
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", auth.ErrInvalidToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", auth.ErrInvalidToken
	}
	return token, nil
}

func isCredentialError(err error) bool {
	return errors.Is(err, errMissingCredential) ||
		errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, auth.ErrTokenExpired)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, errMissingCredential):
		return "missing"
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	case errors.Is(err, errUnknownAccount):
		return "unknown_account"
	default:
		return "invalid"
	}
}

func (a *Authenticator) recordFailure(reason string) {
	if a.recorder != nil {
		a.recorder.RecordAuthFailure(reason)
	}
}
