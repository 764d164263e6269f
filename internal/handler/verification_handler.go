package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/lendbridge/internal/verification"
)

// VerificationServiceInterface は本人確認ハンドラーが必要とするサービスインターフェース。
type VerificationServiceInterface interface {
	GetStatus(ctx context.Context, userID string) (*verification.Status, error)
}

// VerificationHandler は本人確認状態のHTTPハンドラー。
type VerificationHandler struct {
	service VerificationServiceInterface
	errs    errorResponder
}

// NewVerificationHandler はVerificationHandlerを生成する。
func NewVerificationHandler(service VerificationServiceInterface, failures BackendFailureRecorder) *VerificationHandler {
	return &VerificationHandler{
		service: service,
		errs:    errorResponder{failures: failures},
	}
}

// GetStatus はログインユーザーの本人確認状態と次の遷移先を返す。
// GET /api/verification/status
func (h *VerificationHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	status, err := h.service.GetStatus(r.Context(), userID)
	if err != nil {
		h.errs.handle(w, r, "verification status", err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}
