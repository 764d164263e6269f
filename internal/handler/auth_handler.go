package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/lendbridge/internal/middleware"
	"github.com/hitoshi/lendbridge/internal/model"
)

const (
	defaultAfterLoginPath = "/dashboard"
	defaultLoginPath      = "/login"
	authCallbackPath      = "/auth/callback"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// ExchangeTokenHash はメールリンクのtoken_hashをセッションに交換する。
	ExchangeTokenHash(ctx context.Context, tokenHash, otpType string) (*model.TokenPair, error)
	// AcceptTokens はブリッジページから受け取ったトークンペアを検証する。
	AcceptTokens(ctx context.Context, accessToken, refreshToken string) (*model.TokenPair, error)
	// Logout はセッションを失効させる。
	Logout(ctx context.Context, accessToken string) error
}

// RoleLister はユーザーが保持するロール一覧を返す。
type RoleLister interface {
	Roles(ctx context.Context, userID string) ([]string, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	Cookies middleware.CookieConfig
	// AfterLoginPath はnext未指定時のリダイレクト先。
	AfterLoginPath string
	// LoginPath は認証失敗時のリダイレクト先。
	LoginPath string
}

// AuthHandler はセッション連携関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	roles   RoleLister
	config  AuthHandlerConfig
	errs    errorResponder
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, roles RoleLister, config AuthHandlerConfig, failures BackendFailureRecorder) *AuthHandler {
	if config.AfterLoginPath == "" {
		config.AfterLoginPath = defaultAfterLoginPath
	}
	if config.LoginPath == "" {
		config.LoginPath = defaultLoginPath
	}
	return &AuthHandler{
		service: service,
		roles:   roles,
		config:  config,
		errs:    errorResponder{failures: failures},
	}
}

// confirmPageTemplate はURLフラグメントのトークンをクエリに移して
// /auth/callback へ遷移させるブリッジページ。
// フラグメントはサーバーに送信されないため、ブラウザ側で受け渡す。
var confirmPageTemplate = template.Must(template.New("confirm").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="robots" content="noindex">
<title>Signing in</title>
</head>
<body>
<p>Signing you in...</p>
<noscript><p>JavaScript is required to complete sign-in.</p></noscript>
<script nonce="{{.Nonce}}">
(function () {
  var query = new URLSearchParams(window.location.search);
  var fragment = new URLSearchParams(window.location.hash.substring(1));
  fragment.forEach(function (value, key) { query.set(key, value); });
  window.location.replace({{.CallbackPath}} + "?" + query.toString());
})();
</script>
</body>
</html>
`))

type confirmPageData struct {
	Nonce        string
	CallbackPath string
}

// Confirm はクライアント側セッションブリッジのページを返す。
// GET /auth/confirm
func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	nonce, err := generateNonce()
	if err != nil {
		slog.Error("failed to generate script nonce", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Security-Policy", fmt.Sprintf(
		"default-src 'none'; script-src 'nonce-%s'; base-uri 'none'; form-action 'none'; frame-ancestors 'none'",
		nonce,
	))
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if err := confirmPageTemplate.Execute(w, confirmPageData{
		Nonce:        nonce,
		CallbackPath: authCallbackPath,
	}); err != nil {
		slog.Error("failed to render confirm page", slog.String("error", err.Error()))
	}
}

// Callback はブリッジページまたはメールリンクからのトークンを受け取り、
// セッションCookieを設定して安全なnextへリダイレクトする。
// GET /auth/callback?token_hash=xxx&type=yyy
// GET /auth/callback?access_token=xxx&refresh_token=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	w.Header().Set("Referrer-Policy", "no-referrer")

	// 認証サービスがフラグメントにエラーを返した場合
	if errCode := q.Get("error"); errCode != "" {
		slog.Warn("auth callback received error",
			slog.String("error", errCode),
			slog.String("error_code", q.Get("error_code")),
		)
		h.redirectToLogin(w, r, "auth_callback_failed")
		return
	}

	var (
		pair *model.TokenPair
		err  error
	)
	switch {
	case q.Get("token_hash") != "":
		pair, err = h.service.ExchangeTokenHash(r.Context(), q.Get("token_hash"), q.Get("type"))
	case q.Get("access_token") != "" || q.Get("refresh_token") != "":
		pair, err = h.service.AcceptTokens(r.Context(), q.Get("access_token"), q.Get("refresh_token"))
	default:
		h.redirectToLogin(w, r, "missing_credentials")
		return
	}
	if err != nil {
		apiErr := model.AsAPIError(err)
		if apiErr.Kind == model.KindBackendFailure {
			slog.Error("auth callback failed", slog.String("error", err.Error()))
		} else {
			slog.Warn("auth callback rejected", slog.String("code", apiErr.Code))
		}
		h.redirectToLogin(w, r, "auth_callback_failed")
		return
	}

	middleware.SetSessionCookies(w, pair, h.config.Cookies)
	http.Redirect(w, r, safeRedirectPath(q.Get("next"), h.config.AfterLoginPath), http.StatusSeeOther)
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	// Bearer・Cookieのどちらで渡されたトークンも失効させる
	creds, _ := middleware.CredentialsFromRequest(r)
	if creds.AccessToken != "" {
		if err := h.service.Logout(r.Context(), creds.AccessToken); err != nil {
			// 失効処理に失敗してもCookieはクリアする
			slog.Error("failed to logout", slog.String("error", err.Error()))
		}
	}

	middleware.ClearSessionCookies(w, h.config.Cookies)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteAPIError(w, model.NewUnauthenticatedError(), false)
		return
	}

	roles, err := h.roles.Roles(r.Context(), identity.ID)
	if err != nil {
		h.errs.handle(w, r, "load roles", model.NewBackendError("load roles", err))
		return
	}
	if roles == nil {
		roles = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":    identity.ID,
		"email": identity.Email,
		"roles": roles,
	})
}

func (h *AuthHandler) redirectToLogin(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, h.config.LoginPath+"?error="+url.QueryEscape(reason), http.StatusSeeOther)
}

// safeRedirectPath はnextが同一オリジン内の相対パスの場合のみそれを返す。
// スキーム付きURLやプロトコル相対URLはfallbackに置き換える。
func safeRedirectPath(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") {
		return fallback
	}
	if strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") || strings.ContainsAny(next, "\r\n\t") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}

// generateNonce はインラインスクリプト用のCSP nonceを生成する。
func generateNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
