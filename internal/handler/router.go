package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/postboard/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	HealthChecker     HealthChecker
	Authenticator     *middleware.Authenticator
	RateLimiter       *middleware.RateLimiter
	HTTPMetrics       middleware.HTTPRecorder
	MetricsHandler    http.Handler
	ErrorWriter       *middleware.ErrorWriter
	CORSAllowedOrigin string
	// TrustProxyHeaders がtrueの場合のみX-Forwarded-For等からクライアントIPを決定する。
	// 信頼できるリバースプロキシの背後でのみ有効にすること。
	TrustProxyHeaders bool

	// サービス
	AuthService    AuthServiceInterface
	PostService    PostServiceInterface
	CommentService CommentServiceInterface
	UserService    UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP(TrustProxyHeaders時のみ) → Logging → Recovery → Metrics → SecurityHeaders → CORS
//	  → Authenticate(任意|必須) → RateLimit(General)
//
// 登録・ログイン（/api/auth/*）は認証を通さず、IP単位の専用レート制限のみ適用する。
// プロキシヘッダーを信頼しない場合、レート制限のキーは接続元アドレスになる。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if deps.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, middleware.ErrorResponseBody{
			Code:     "NOT_FOUND",
			Message:  "指定されたエンドポイントは存在しません。",
			Category: "resource",
			Action:   "URLを確認してください。",
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, middleware.ErrorResponseBody{
			Code:     "METHOD_NOT_ALLOWED",
			Message:  "このメソッドは利用できません。",
			Category: "validation",
			Action:   "HTTPメソッドを確認してください。",
		})
	})

	authHandler := NewAuthHandler(deps.AuthService, deps.ErrorWriter)
	postHandler := NewPostHandler(deps.PostService, deps.ErrorWriter)
	commentHandler := NewCommentHandler(deps.CommentService, deps.ErrorWriter)
	userHandler := NewUserHandler(deps.UserService, deps.ErrorWriter)

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 登録・ログイン ---
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	// --- 閲覧（認証任意） ---
	// 資格情報が無効でも匿名として扱う
	r.Group(func(r chi.Router) {
		r.Use(deps.Authenticator.Authenticate(false))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/posts", postHandler.List)
		r.Get("/api/posts/{id}", postHandler.Get)
		r.Get("/api/posts/{id}/comments", commentHandler.ListByPost)
		r.Get("/api/comments/{id}", commentHandler.Get)
	})

	// --- 変更系（認証必須） ---
	r.Group(func(r chi.Router) {
		r.Use(deps.Authenticator.Authenticate(true))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 投稿
		r.Post("/api/posts", postHandler.Create)
		r.Put("/api/posts/{id}", postHandler.Update)
		r.Delete("/api/posts/{id}", postHandler.Delete)

		// コメント
		r.Post("/api/posts/{id}/comments", commentHandler.Create)
		r.Put("/api/comments/{id}", commentHandler.Update)
		r.Delete("/api/comments/{id}", commentHandler.Delete)

		// ユーザー
		r.Get("/api/users/me", userHandler.Me)
		r.Delete("/api/users/me", userHandler.Withdraw)

		// 管理者によるユーザー管理（権限はポリシーで判定）
		r.Route("/api/admin/users", func(r chi.Router) {
			r.Get("/", userHandler.List)
			r.Patch("/{id}/role", userHandler.ChangeRole)
			r.Delete("/{id}", userHandler.AdminDelete)
		})
	})

	return r
}
