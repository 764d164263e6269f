package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// LendingServiceInterface はストアドプロシージャ呼び出しのサービスインターフェース。
// 結果はプロシージャが返したJSONをそのまま返す。
type LendingServiceInterface interface {
	LenderTier(ctx context.Context, userID string) (json.RawMessage, error)
	BorrowerRiskScore(ctx context.Context, borrowerID string) (json.RawMessage, error)
	GenerateAgreement(ctx context.Context, loanID, userID string) (json.RawMessage, error)
}

// LendingHandler は与信・契約関連のHTTPハンドラー。
type LendingHandler struct {
	service LendingServiceInterface
	errs    errorResponder
}

// NewLendingHandler はLendingHandlerを生成する。
func NewLendingHandler(service LendingServiceInterface, failures BackendFailureRecorder) *LendingHandler {
	return &LendingHandler{
		service: service,
		errs:    errorResponder{failures: failures},
	}
}

// GetLenderTier はログインユーザーの貸し手ティアを返す。
// GET /api/lenders/me/tier
func (h *LendingHandler) GetLenderTier(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	tier, err := h.service.LenderTier(r.Context(), userID)
	if err != nil {
		h.errs.handle(w, r, "get lender tier", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": tier})
}

// GetBorrowerRiskScore は借り手のリスクスコアを返す。
// GET /api/borrowers/{id}/risk-score
func (h *LendingHandler) GetBorrowerRiskScore(w http.ResponseWriter, r *http.Request) {
	score, err := h.service.BorrowerRiskScore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.handle(w, r, "calculate borrower risk score", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": score})
}

// GenerateAgreement はローン契約書を生成する。
// POST /api/loans/{id}/agreement
func (h *LendingHandler) GenerateAgreement(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	agreement, err := h.service.GenerateAgreement(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		h.errs.handle(w, r, "generate loan agreement", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": agreement})
}
