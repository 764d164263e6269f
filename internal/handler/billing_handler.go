package handler

import (
	"context"
	"net/http"
)

// BillingServiceInterface は課金ハンドラーが必要とするサービスインターフェース。
type BillingServiceInterface interface {
	CreatePortalSession(ctx context.Context, userID string) (string, error)
}

// BillingHandler は課金ポータルのHTTPハンドラー。
type BillingHandler struct {
	service BillingServiceInterface
	errs    errorResponder
}

// NewBillingHandler はBillingHandlerを生成する。
func NewBillingHandler(service BillingServiceInterface, failures BackendFailureRecorder) *BillingHandler {
	return &BillingHandler{
		service: service,
		errs:    errorResponder{failures: failures},
	}
}

// CreatePortalSession は課金ポータルのセッションURLを返す。
// POST /api/billing/portal
func (h *BillingHandler) CreatePortalSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	url, err := h.service.CreatePortalSession(r.Context(), userID)
	if err != nil {
		h.errs.handle(w, r, "create billing portal session", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
