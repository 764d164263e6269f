package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/lendbridge/internal/auth"
	"github.com/hitoshi/lendbridge/internal/authz"
	"github.com/hitoshi/lendbridge/internal/billing"
	"github.com/hitoshi/lendbridge/internal/cache"
	"github.com/hitoshi/lendbridge/internal/config"
	"github.com/hitoshi/lendbridge/internal/database"
	"github.com/hitoshi/lendbridge/internal/diagnostic"
	"github.com/hitoshi/lendbridge/internal/document"
	"github.com/hitoshi/lendbridge/internal/handler"
	"github.com/hitoshi/lendbridge/internal/invite"
	"github.com/hitoshi/lendbridge/internal/lending"
	"github.com/hitoshi/lendbridge/internal/logger"
	"github.com/hitoshi/lendbridge/internal/metrics"
	"github.com/hitoshi/lendbridge/internal/middleware"
	"github.com/hitoshi/lendbridge/internal/profile"
	"github.com/hitoshi/lendbridge/internal/repository"
	"github.com/hitoshi/lendbridge/internal/security"
	"github.com/hitoshi/lendbridge/internal/verification"
	"github.com/hitoshi/lendbridge/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// .envがあれば環境変数に読み込み、JSON構造化ログをセットアップしてからConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. .envの読み込み（存在しない場合は無視。既存の環境変数は上書きしない）
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 2. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("app_base_url", cfg.AppBaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg, ParseMigrateDirection(args))
	default:
		return runServe(cfg)
	}
}

// runServe はAPIゲートウェイモードで起動する。
// DB・Redis・認証サービスへの接続を準備し、全依存関係をワイヤリングしてHTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	profileRepo := repository.NewPostgresProfileRepo(db)
	roleRepo := repository.NewPostgresRoleRepo(db)
	borrowerRepo := repository.NewPostgresBorrowerRepo(db)
	lenderRepo := repository.NewPostgresLenderRepo(db)
	subRepo := repository.NewPostgresSubscriptionRepo(db)
	documentRepo := repository.NewPostgresDocumentRepo(db)
	rpc := repository.NewPostgresRPC(db)

	// 3. 失効ストア（REDIS_URL未設定時は失効を記録しない）
	var revocations auth.RevocationStore = cache.NoopRevocationStore{}
	if cfg.RedisURL != "" {
		redisClient, err := cache.Connect(context.Background(), cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		revocations = cache.NewRedisRevocationStore(redisClient)
		slog.Info("redis connection established")
	} else {
		slog.Warn("REDIS_URL is not set; logout revocations are not shared across instances")
	}

	// 4. 認証
	goTrue := auth.NewGoTrueClient(auth.GoTrueConfig{
		BaseURL:        cfg.BackendURL,
		AnonKey:        cfg.BackendAnonKey,
		ServiceRoleKey: cfg.BackendServiceRoleKey,
		HTTPClient:     &http.Client{Timeout: cfg.BackendTimeout},
	})
	verifier := auth.NewTokenVerifier(cfg.BackendJWTSecret)
	resolver := auth.NewResolver(verifier, goTrue, revocations)
	authService := auth.NewService(goTrue, verifier, revocations)
	gate := authz.NewGate(roleRepo)

	// 5. ドメインサービスの初期化
	sanitizer := security.NewTextSanitizer()

	var portal billing.PortalCreator
	if cfg.StripeSecretKey != "" {
		portal = billing.NewStripePortal(cfg.StripeSecretKey, nil)
	} else {
		slog.Warn("STRIPE_SECRET_KEY is not set; billing portal is unavailable")
	}

	verificationService := verification.NewService(borrowerRepo)
	documentService := document.NewService(documentRepo, borrowerRepo)
	diagnosticService := diagnostic.NewService(goTrue, profileRepo, lenderRepo, subRepo)
	inviteService := invite.NewService(lenderRepo, rpc, sanitizer)
	billingService := billing.NewService(profileRepo, portal, cfg.AppBaseURL)
	profileService := profile.NewService(profileRepo, roleRepo, borrowerRepo, lenderRepo, subRepo)
	lendingService := lending.NewService(lenderRepo, rpc)

	// 6. 監視
	registry := newRegistry()
	collector := metrics.NewCollector(registry)

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigFromPerMinute(cfg.RateLimitGeneral, cfg.RateLimitUpload),
	)
	defer rateLimiter.Stop()

	cookies := middleware.CookieConfig{
		Secure: cfg.CookieSecure,
		Domain: cfg.CookieDomain,
	}

	deps := &handler.RouterDeps{
		SessionResolver:   resolver,
		RoleChecker:       gate,
		Cookies:           cookies,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),

		Metrics:       collector,
		Gatherer:      registry,
		HealthChecker: db,

		EnableDiagnostics: cfg.EnableDiagnostics,

		AuthService: authService,
		RoleLister:  gate,
		AuthConfig:  handler.AuthHandlerConfig{Cookies: cookies},

		VerificationService: verificationService,
		DocumentService:     documentService,
		DiagnosticService:   diagnosticService,
		InviteService:       inviteService,
		BillingService:      billingService,
		ProfileService:      profileService,
		LendingService:      lendingService,
	}

	if cfg.EnableDiagnostics {
		slog.Warn("diagnostic routes are enabled; do not expose this instance publicly")
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return serveUntilSignal(server, "API server")
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、招待クリーンアップジョブを定期実行する。
// /metrics と /health はSERVER_PORTで公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. 監視
	registry := newRegistry()
	collector := metrics.NewCollector(registry)

	// 3. クリーンアップジョブの初期化
	job := cleanup.NewInviteCleanupJob(db, slog.Default(), collector)
	if cfg.InviteRetentionDays > 0 {
		job.RetentionDays = cfg.InviteRetentionDays
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopSignals := cancelOnSignal(ctx, cancel)
	defer stopSignals()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      metrics.SetupMetricsRoute(registry, handler.NewHealthHandler(db)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("worker metrics server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics server error", slog.String("error", err.Error()))
		}
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Int("retention_days", job.RetentionDays),
	)

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	job.Start(ctx, cfg.CleanupInterval)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("worker metrics server shutdown failed: %w", err)
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// cancelOnSignal はSIGINTまたはSIGTERMの受信でcancelを呼ぶ。
// 戻り値の関数でシグナルの購読を解除する。
func cancelOnSignal(ctx context.Context, cancel context.CancelFunc) func() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-stop:
			slog.Info("shutting down worker...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return func() { signal.Stop(stop) }
}

// runMigrate はデータベースマイグレーションを実行する。
// MigrateUpは未適用分をすべて適用し、MigrateDownは直近の1件を巻き戻す。
func runMigrate(cfg *config.Config, direction MigrateDirection) error {
	slog.Info("running database migrations",
		slog.String("direction", string(direction)),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	migrateFn := database.RunMigrations
	if direction == MigrateDown {
		migrateFn = database.RollbackMigration
	}

	status, err := migrateFn(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed",
		slog.String("direction", string(direction)),
		slog.Uint64("version", uint64(status.Version)),
		slog.Bool("dirty", status.Dirty),
		slog.Bool("changed", status.Changed),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// serveUntilSignal はサーバーを起動し、SIGINT/SIGTERMを受信したらグレースフルシャットダウンする。
func serveUntilSignal(server *http.Server, name string) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		slog.Info(name+" starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		return fmt.Errorf("%s listen failed: %w", name, err)
	}

	slog.Info("shutting down " + name + "...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info(name + " stopped gracefully")
	return nil
}

// newRegistry はGo/プロセスメトリクスを登録済みのレジストリを返す。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
