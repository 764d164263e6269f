// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/lendbridge/internal/auth"
	"github.com/hitoshi/lendbridge/internal/model"
)

const (
	// AccessTokenCookieName はアクセストークンを保持するCookieの名前。
	AccessTokenCookieName = "sb-access-token"
	// RefreshTokenCookieName はリフレッシュトークンを保持するCookieの名前。
	RefreshTokenCookieName = "sb-refresh-token"

	refreshTokenMaxAge = 30 * 24 * 60 * 60 // 30日
)

// 認証結果のラベル
const (
	AuthOutcomeAuthenticated = "authenticated"
	AuthOutcomeRefreshed     = "refreshed"
	AuthOutcomeAnonymous     = "anonymous"
	AuthOutcomeError         = "error"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
	userIDContextKey     = contextKey("user_id")
	identityContextKey   = contextKey("identity")
	bearerAuthContextKey = contextKey("bearer_auth")
)

// SessionResolver はリクエストの認証情報からIdentityを解決する。
// auth.Resolverが実装する。
type SessionResolver interface {
	Resolve(ctx context.Context, creds auth.Credentials) (*auth.Resolution, error)
}

// AuthOutcomeRecorder はセッション解決の結果を記録する。
type AuthOutcomeRecorder interface {
	RecordAuthOutcome(outcome string)
}

// CookieConfig はセッションCookieの属性。
type CookieConfig struct {
	Secure bool
	Domain string
}

// SessionConfig はセッションミドルウェアの設定。
type SessionConfig struct {
	Cookies  CookieConfig
	Recorder AuthOutcomeRecorder // nilの場合は記録しない
}

// NewRequireSessionMiddleware はセッションを解決し、未認証リクエストに
// 401 Unauthorizedを返すミドルウェアを返す。
// 解決したIdentityはリクエストコンテキストに注入する。
func NewRequireSessionMiddleware(resolver SessionResolver, config SessionConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, identity, err := resolveSession(w, r, resolver, config)
			if err != nil {
				slog.Error("failed to resolve session",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if identity == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewOptionalSessionMiddleware はセッションが解決できた場合のみIdentityを注入し、
// 未認証でもリクエストを拒否しないミドルウェアを返す。
func NewOptionalSessionMiddleware(resolver SessionResolver, config SessionConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, _, err := resolveSession(w, r, resolver, config)
			if err != nil {
				slog.Warn("failed to resolve optional session",
					slog.String("error", err.Error()),
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolveSession は認証情報を取り出して解決し、結果をコンテキストに反映したリクエストを返す。
// トークンがローテーションされた場合はCookieを書き戻す。
func resolveSession(w http.ResponseWriter, r *http.Request, resolver SessionResolver, config SessionConfig) (*http.Request, *model.Identity, error) {
	creds, bearer := CredentialsFromRequest(r)
	if creds.AccessToken == "" && creds.RefreshToken == "" {
		recordAuthOutcome(config.Recorder, AuthOutcomeAnonymous)
		return r, nil, nil
	}

	res, err := resolver.Resolve(r.Context(), creds)
	if err != nil {
		recordAuthOutcome(config.Recorder, AuthOutcomeError)
		return r, nil, err
	}
	if !res.Authenticated() {
		recordAuthOutcome(config.Recorder, AuthOutcomeAnonymous)
		return r, nil, nil
	}

	if res.Refreshed != nil && !bearer {
		SetSessionCookies(w, res.Refreshed, config.Cookies)
		recordAuthOutcome(config.Recorder, AuthOutcomeRefreshed)
	} else {
		recordAuthOutcome(config.Recorder, AuthOutcomeAuthenticated)
	}

	ctx := ContextWithIdentity(r.Context(), res.Identity)
	if bearer {
		ctx = context.WithValue(ctx, bearerAuthContextKey, true)
	}
	return r.WithContext(ctx), res.Identity, nil
}

func recordAuthOutcome(recorder AuthOutcomeRecorder, outcome string) {
	if recorder != nil {
		recorder.RecordAuthOutcome(outcome)
	}
}

// CredentialsFromRequest はリクエストから認証情報を取り出す。
// Authorization: Bearer ヘッダーがある場合はCookieより優先し、第2戻り値にtrueを返す。
// Bearer認証ではリフレッシュトークンCookieを参照しない。
func CredentialsFromRequest(r *http.Request) (auth.Credentials, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(token) != "" {
			return auth.Credentials{AccessToken: strings.TrimSpace(token)}, true
		}
	}

	var creds auth.Credentials
	if c, err := r.Cookie(AccessTokenCookieName); err == nil {
		creds.AccessToken = c.Value
	}
	if c, err := r.Cookie(RefreshTokenCookieName); err == nil {
		creds.RefreshToken = c.Value
	}
	return creds, false
}

// SetSessionCookies はトークンペアをHTTP Only Cookieに書き込む。
func SetSessionCookies(w http.ResponseWriter, pair *model.TokenPair, config CookieConfig) {
	accessMaxAge := pair.ExpiresIn
	if accessMaxAge <= 0 && !pair.ExpiresAt.IsZero() {
		accessMaxAge = int(time.Until(pair.ExpiresAt).Seconds())
	}
	if accessMaxAge <= 0 {
		accessMaxAge = 3600
	}

	http.SetCookie(w, sessionCookie(AccessTokenCookieName, pair.AccessToken, accessMaxAge, config))
	http.SetCookie(w, sessionCookie(RefreshTokenCookieName, pair.RefreshToken, refreshTokenMaxAge, config))
}

// ClearSessionCookies はセッションCookieを削除する。
func ClearSessionCookies(w http.ResponseWriter, config CookieConfig) {
	http.SetCookie(w, sessionCookie(AccessTokenCookieName, "", -1, config))
	http.SetCookie(w, sessionCookie(RefreshTokenCookieName, "", -1, config))
}

func sessionCookie(name, value string, maxAge int, config CookieConfig) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// IdentityFromContext はリクエストコンテキストからIdentityを取得する。
// セッションミドルウェアで解決できたリクエストでのみ値を返す。
func IdentityFromContext(ctx context.Context) (*model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*model.Identity)
	return identity, ok && identity != nil
}

// ContextWithIdentity はコンテキストにIdentityとユーザーIDを注入する。
func ContextWithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	ctx = context.WithValue(ctx, identityContextKey, identity)
	return ContextWithUserID(ctx, identity.ID)
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	recordRequestUserID(ctx, userID)
	return context.WithValue(ctx, userIDContextKey, userID)
}

// IsBearerAuthenticated はAuthorizationヘッダーで認証されたリクエストかを返す。
func IsBearerAuthenticated(ctx context.Context) bool {
	v, _ := ctx.Value(bearerAuthContextKey).(bool)
	return v
}
