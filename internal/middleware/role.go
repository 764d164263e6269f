package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/lendbridge/internal/model"
)

// RoleChecker はユーザーが必要なロールのいずれかを持つかを判定する。
// authz.Gateが実装する。
type RoleChecker interface {
	Allowed(ctx context.Context, userID string, required ...string) (bool, error)
}

// AuthzDenialRecorder はロール不足による拒否を記録する。
type AuthzDenialRecorder interface {
	RecordAuthzDenial(requiredRoles string)
}

// RoleGate はロール要件をルートグループに適用するミドルウェアを生成する。
type RoleGate struct {
	checker  RoleChecker
	recorder AuthzDenialRecorder
}

// NewRoleGate はRoleGateを生成する。recorderはnil可。
func NewRoleGate(checker RoleChecker, recorder AuthzDenialRecorder) *RoleGate {
	return &RoleGate{checker: checker, recorder: recorder}
}

// NewRequireRoleMiddleware はrolesのいずれかを要求するミドルウェアを返す。
func NewRequireRoleMiddleware(checker RoleChecker, roles ...string) func(next http.Handler) http.Handler {
	return NewRoleGate(checker, nil).Require(roles...)
}

// Require はrolesのいずれかを持つユーザーのみ通過させるミドルウェアを返す。
// セッションミドルウェアの後に配置する。
// 未認証は401、ロール不足は403、ロール取得失敗は500を返す。
func (g *RoleGate) Require(roles ...string) func(next http.Handler) http.Handler {
	label := strings.Join(roles, "|")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			allowed, err := g.checker.Allowed(r.Context(), userID, roles...)
			if err != nil {
				slog.Error("failed to check roles",
					slog.String("user_id", userID),
					slog.String("required", label),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if !allowed {
				slog.Warn("role check denied",
					slog.String("user_id", userID),
					slog.String("required", label),
					slog.String("path", r.URL.Path),
				)
				if g.recorder != nil {
					g.recorder.RecordAuthzDenial(label)
				}
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
