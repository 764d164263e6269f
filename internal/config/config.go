package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Backend (hosted database / auth service)
	BackendURL            string
	BackendAnonKey        string
	BackendServiceRoleKey string
	BackendJWTSecret      string
	DatabaseURL           string

	// Application
	AppBaseURL string

	// Billing
	StripeSecretKey string

	// Revocation store
	RedisURL string

	// Diagnostics
	EnableDiagnostics bool

	// Rate Limit (req/min)
	RateLimitGeneral int
	RateLimitUpload  int

	// Worker
	InviteRetentionDays int
	CleanupInterval     time.Duration

	// HTTP client
	BackendTimeout time.Duration

	// Server
	ServerPort string
	// TrustProxyHeaders がtrueの場合、X-Forwarded-For等からクライアントIPを取得する
	TrustProxyHeaders bool

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はまとめてエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string
	required := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg.BackendURL = strings.TrimRight(required("BACKEND_URL"), "/")
	cfg.BackendAnonKey = required("BACKEND_ANON_KEY")
	cfg.BackendServiceRoleKey = required("BACKEND_SERVICE_ROLE_KEY")
	cfg.BackendJWTSecret = required("BACKEND_JWT_SECRET")
	cfg.DatabaseURL = required("DATABASE_URL")
	cfg.AppBaseURL = strings.TrimRight(required("APP_BASE_URL"), "/")

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.StripeSecretKey = getEnvString("STRIPE_SECRET_KEY", "")
	cfg.RedisURL = getEnvString("REDIS_URL", "")
	cfg.EnableDiagnostics = getEnvBool("ENABLE_DIAGNOSTICS", false)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitUpload = getEnvInt("RATE_LIMIT_UPLOAD", 20)
	cfg.InviteRetentionDays = getEnvInt("INVITE_RETENTION_DAYS", 30)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 24*time.Hour)
	cfg.BackendTimeout = getEnvDuration("BACKEND_TIMEOUT", 10*time.Second)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.TrustProxyHeaders = getEnvBool("TRUST_PROXY_HEADERS", false)
	cfg.CookieSecure = strings.HasPrefix(cfg.AppBaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvDuration は0以下の値を不正値として扱い、デフォルト値を返す。
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
