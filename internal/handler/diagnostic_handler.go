package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/lendbridge/internal/diagnostic"
	"github.com/hitoshi/lendbridge/internal/model"
)

// DiagnosticServiceInterface は診断ハンドラーが必要とするサービスインターフェース。
type DiagnosticServiceInterface interface {
	InspectAccount(ctx context.Context, userID string) (*diagnostic.AccountReport, error)
}

// DiagnosticHandler はアカウント診断用のHTTPハンドラー。
// ENABLE_DIAGNOSTICSが有効な場合のみマウントされる。
// エラーレスポンスにはバックエンドの生エラー（details）を含める。
type DiagnosticHandler struct {
	service DiagnosticServiceInterface
	errs    errorResponder
}

// NewDiagnosticHandler はDiagnosticHandlerを生成する。
func NewDiagnosticHandler(service DiagnosticServiceInterface, failures BackendFailureRecorder) *DiagnosticHandler {
	return &DiagnosticHandler{
		service: service,
		errs:    errorResponder{failures: failures, withDetails: true},
	}
}

// InspectAccount は指定ユーザーの認証ユーザー・プロフィール・貸し手・契約をまとめて返す。
// GET /api/debug/account?user_id=xxx
func (h *DiagnosticHandler) InspectAccount(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.errs.handle(w, r, "inspect account", model.NewMissingFieldsError([]string{"user_id"}))
		return
	}

	report, err := h.service.InspectAccount(r.Context(), userID)
	if err != nil {
		h.errs.handle(w, r, "inspect account", err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
