package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/lendbridge/internal/metrics"
	"github.com/hitoshi/lendbridge/internal/middleware"
	"github.com/hitoshi/lendbridge/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionResolver   middleware.SessionResolver
	RoleChecker       middleware.RoleChecker
	Cookies           middleware.CookieConfig
	CORSAllowedOrigin string
	TrustProxyHeaders bool
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger // nilの場合はslog.Default()

	// 監視
	Metrics       metrics.MetricsCollector // nilの場合は計測しない
	Gatherer      prometheus.Gatherer      // nilの場合は/metricsをマウントしない
	HealthChecker HealthChecker

	// 診断ルート（/api/debug/*）を公開するか
	EnableDiagnostics bool

	// 認証
	AuthService AuthServiceInterface
	RoleLister  RoleLister
	AuthConfig  AuthHandlerConfig

	// ドメインサービス
	VerificationService VerificationServiceInterface
	DocumentService     DocumentServiceInterface
	DiagnosticService   DiagnosticServiceInterface
	InviteService       InviteServiceInterface
	BillingService      BillingServiceInterface
	ProfileService      ProfileServiceInterface
	LendingService      LendingServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// 全ルート共通のミドルウェアの実行順序:
//
//	Recovery → SecurityHeaders → CORS → (RealIP) → Metrics → Logging
//
// 認証が必要なルート:
//
//	RequireSession → RateLimit(General) → CSRF → (RequireRole)
//
// 書類アップロードはOptionalSession → RateLimit(Upload)とし、CSRF検証はしない。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewLoggingMiddleware(logger))

	var (
		failures     BackendFailureRecorder
		uploads      DocumentUploadRecorder
		authOutcomes middleware.AuthOutcomeRecorder
		denials      middleware.AuthzDenialRecorder
	)
	if deps.Metrics != nil {
		failures = deps.Metrics
		uploads = deps.Metrics
		authOutcomes = deps.Metrics
		denials = deps.Metrics
	}

	sessionConfig := middleware.SessionConfig{Cookies: deps.Cookies, Recorder: authOutcomes}
	csrfConfig := middleware.CSRFConfig{CookieSecure: deps.Cookies.Secure, CookieDomain: deps.Cookies.Domain}

	requireSession := middleware.NewRequireSessionMiddleware(deps.SessionResolver, sessionConfig)
	optionalSession := middleware.NewOptionalSessionMiddleware(deps.SessionResolver, sessionConfig)
	csrf := middleware.NewCSRFMiddleware(csrfConfig)
	gate := middleware.NewRoleGate(deps.RoleChecker, denials)

	authHandler := NewAuthHandler(deps.AuthService, deps.RoleLister, deps.AuthConfig, failures)
	verificationHandler := NewVerificationHandler(deps.VerificationService, failures)
	documentHandler := NewDocumentHandler(deps.DocumentService, uploads, failures)
	inviteHandler := NewInviteHandler(deps.InviteService, failures)
	billingHandler := NewBillingHandler(deps.BillingService, failures)
	profileHandler := NewProfileHandler(deps.ProfileService, failures)
	lendingHandler := NewLendingHandler(deps.LendingService, failures)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(csrfConfig))

	// セッション連携
	r.Route("/auth", func(r chi.Router) {
		r.Get("/confirm", authHandler.Confirm)
		r.Get("/callback", authHandler.Callback)
		r.With(optionalSession, csrf).Post("/logout", authHandler.Logout)
		r.With(requireSession).Get("/me", authHandler.Me)
	})

	// 書類アップロード（匿名可、サービスロールで書き込む）
	r.With(optionalSession, deps.RateLimiter.UploadMiddleware()).Post("/api/documents", documentHandler.Upload)

	// 診断ルートは明示的に有効化した場合のみ公開する
	if deps.EnableDiagnostics {
		diagnosticHandler := NewDiagnosticHandler(deps.DiagnosticService, failures)
		r.With(deps.RateLimiter.GeneralMiddleware()).Get("/api/debug/account", diagnosticHandler.InspectAccount)
	}

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(requireSession)
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(csrf)

		r.Get("/api/profile", profileHandler.GetProfile)
		r.Get("/api/verification/status", verificationHandler.GetStatus)
		r.Get("/api/borrowers/me", profileHandler.GetBorrower)
		r.Get("/api/borrowers/me/documents", documentHandler.ListMine)
		r.Post("/api/billing/portal", billingHandler.CreatePortalSession)

		// 貸し手専用
		r.Group(func(r chi.Router) {
			r.Use(gate.Require(model.RoleLender))

			r.Get("/api/lenders/me", profileHandler.GetLender)
			r.Get("/api/lenders/me/tier", lendingHandler.GetLenderTier)
			r.Post("/api/lender/invites", inviteHandler.CreateInvite)
		})

		// 貸し手または管理者
		r.Group(func(r chi.Router) {
			r.Use(gate.Require(model.RoleLender, model.RoleAdmin))

			r.Get("/api/borrowers/{id}/risk-score", lendingHandler.GetBorrowerRiskScore)
			r.Post("/api/loans/{id}/agreement", lendingHandler.GenerateAgreement)
		})
	})

	return r
}
