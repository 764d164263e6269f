package middleware

import (
	"net/http"
	"strings"
)

const (
	// Bearer認証とCSRFトークンヘッダーを許可する
	corsAllowedHeaders = "Content-Type, Authorization, X-CSRF-Token"
	corsAllowedMethods = "GET, POST, OPTIONS"
	corsMaxAge         = "86400"
)

// ParseAllowedOrigins はカンマ区切りのオリジン指定を分解する。
// 末尾のスラッシュは除去し、空要素と"*"は無視する。
func ParseAllowedOrigins(spec string) []string {
	var origins []string
	for _, o := range strings.Split(spec, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || o == "*" {
			continue
		}
		origins = append(origins, o)
	}
	return origins
}

// NewCORSMiddleware は許可リストに含まれるOriginにだけCORSヘッダーを付与するミドルウェアを返す。
// allowedOriginsはカンマ区切りで複数指定できる。
// Cookieを送るため、ワイルドカードは使わずリクエストのOriginをそのまま返す。
// 許可されたOriginからのOPTIONSプリフライトには204で応答する。
func NewCORSMiddleware(allowedOrigins string) func(next http.Handler) http.Handler {
	allowed := make(map[string]bool)
	for _, o := range ParseAllowedOrigins(allowedOrigins) {
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			if origin == "" || !allowed[origin] {
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", corsAllowedMethods)
				h.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
				h.Set("Access-Control-Max-Age", corsMaxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
