package middleware

import (
	"context"

	"github.com/hitoshi/postboard/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// identityContextKey はリクエストコンテキストに認証済みIdentityを格納するためのキー。
	identityContextKey = contextKey("identity")
	// requestStateContextKey はリクエスト単位で外側のミドルウェアと共有する状態のキー。
	requestStateContextKey = contextKey("request_state")
)

// requestState は内側のミドルウェアで決まった情報を外側のログ出力に伝えるための入れ物。
// 1リクエストを処理するゴルーチンからのみ参照される。
type requestState struct {
	userID string
}

// IdentityFromContext はリクエストコンテキストから認証済みIdentityを取得する。
// 匿名リクエストの場合はnilを返す。
func IdentityFromContext(ctx context.Context) *model.Identity {
	identity, _ := ctx.Value(identityContextKey).(*model.Identity)
	return identity
}

// ContextWithIdentity はコンテキストにIdentityを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	if state, ok := ctx.Value(requestStateContextKey).(*requestState); ok && identity != nil {
		state.userID = identity.ID
	}
	return context.WithValue(ctx, identityContextKey, identity)
}

func contextWithRequestState(ctx context.Context) (context.Context, *requestState) {
	state := &requestState{}
	return context.WithValue(ctx, requestStateContextKey, state), state
}
