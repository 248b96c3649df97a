package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/aury/internal/metrics"
	"github.com/hitoshi/aury/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	Authenticator Authenticator
	Orchestrator  SessionOrchestratorInterface
	Tracker       TrackerServiceInterface
	Push          PushManagerInterface

	// Gatherer は/metricsの生成元。nilの場合/metricsは公開しない。
	Gatherer prometheus.Gatherer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → RateLimit
//
// /healthz と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	sessionHandler := NewSessionHandler(deps.Authenticator, deps.Orchestrator)
	trackerHandler := NewTrackerHandler(deps.Tracker, deps.Orchestrator)
	pushHandler := NewPushHandler(deps.Push, deps.Orchestrator)

	// --- 運用エンドポイント（レート制限の外） ---

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.Gatherer != nil {
		r.Get("/metrics", metrics.Handler(deps.Gatherer).ServeHTTP)
	}

	// --- ローカルUI向けエンドポイント ---

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.Middleware())

		r.Route("/client", func(r chi.Router) {
			// セッション
			r.Post("/auth/google", sessionHandler.Authenticate)
			r.Get("/session", sessionHandler.GetSession)
			r.Post("/session/restore", sessionHandler.Restore)
			r.Post("/goal", sessionHandler.SetGoal)
			r.Post("/logout", sessionHandler.Logout)
			r.Post("/screen", sessionHandler.Navigate)

			// 支出・連続記録
			r.Post("/expense", trackerHandler.LogExpense)
			r.Get("/streak", trackerHandler.GetStreak)
			r.Post("/streak/freeze", trackerHandler.StreakFreeze)
			r.Get("/expenses/recent", trackerHandler.RecentExpenses)
			r.Get("/tone", trackerHandler.GetTone)
			r.Post("/tone", trackerHandler.SetTone)
			r.Get("/beta-status", trackerHandler.BetaStatus)
			r.Get("/waitlist-status", trackerHandler.WaitlistStatus)

			// 通知
			r.Get("/notifications", pushHandler.GetNotifications)
			r.Post("/notifications", pushHandler.ToggleNotifications)
		})
	})

	return r
}
