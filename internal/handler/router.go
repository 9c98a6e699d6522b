package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/takumi/postgate/internal/metrics"
	"github.com/takumi/postgate/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	UserFinder        middleware.UserFinder
	CORSAllowedOrigin string
	HTTPMetrics       middleware.HTTPMetrics

	// 認証
	AuthService  AuthServiceInterface
	AuthConfig   AuthHandlerConfig
	PhotoFetcher PhotoFetcher

	// ユーザー・記事
	UserStore UserStore
	PostStore PostStore
	Sanitizer Sanitizer

	// 運用
	HealthChecker HealthChecker
	Gatherer      prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Metrics → Logging
//
// 認証が必要なルートはAuthMiddlewareを追加したグループに配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))

	authHandler := NewAuthHandler(deps.AuthService, deps.UserFinder, deps.PhotoFetcher, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserStore)
	postHandler := NewPostHandler(deps.PostStore, deps.Sanitizer)

	// --- 認証不要のルート ---

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","message":"server is running"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(r.Context()); err != nil {
				middleware.WriteFail(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// OAuthフロー
	r.Get("/auth/google/login", authHandler.Login)
	r.Get("/auth/google", authHandler.Callback)
	r.Post("/auth/google", authHandler.Callback)

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier, deps.UserFinder))

		// セッション管理
		r.Get("/auth/users", authHandler.Me)
		r.Get("/auth/users/photo", authHandler.Photo)
		r.Get("/auth/logout", authHandler.Logout)

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Get("/", userHandler.List)
			r.Post("/", userHandler.Create)
			r.Put("/", userHandler.Update)
			r.Post("/email", userHandler.FindByEmail)
			r.Delete("/{id}", userHandler.Delete)
		})

		// 記事管理
		r.Route("/api/posts", func(r chi.Router) {
			r.Get("/", postHandler.List)
			r.Post("/", postHandler.Create)
			r.Put("/", postHandler.Update)
			r.Get("/{id}", postHandler.Get)
			r.Delete("/{id}", postHandler.Delete)
		})
	})

	return r
}
