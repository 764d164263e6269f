package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/lendbridge/internal/model"
	"github.com/hitoshi/lendbridge/internal/profile"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	// GetOverview はプロフィールとロール一覧を返す。
	GetOverview(ctx context.Context, userID string) (*profile.Overview, error)
	// GetBorrower は借り手レコードを返す。
	GetBorrower(ctx context.Context, userID string) (*model.Borrower, error)
	// GetLenderOverview は貸し手レコードと最新の契約を返す。
	GetLenderOverview(ctx context.Context, userID string) (*profile.LenderOverview, error)
}

// ProfileHandler はプロフィール参照のHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
	errs    errorResponder
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface, failures BackendFailureRecorder) *ProfileHandler {
	return &ProfileHandler{
		service: service,
		errs:    errorResponder{failures: failures},
	}
}

// GetProfile はログインユーザーのプロフィールとロールを返す。
// GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	overview, err := h.service.GetOverview(r.Context(), userID)
	if err != nil {
		h.errs.handle(w, r, "load profile", err)
		return
	}

	writeJSON(w, http.StatusOK, overview)
}

// GetBorrower はログインユーザーの借り手レコードを返す。
// GET /api/borrowers/me
func (h *ProfileHandler) GetBorrower(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	borrower, err := h.service.GetBorrower(r.Context(), userID)
	if err != nil {
		h.errs.handle(w, r, "load borrower", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": borrower})
}

// GetLender はログインユーザーの貸し手レコードと契約を返す。lenderロールが必要。
// GET /api/lenders/me
func (h *ProfileHandler) GetLender(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	overview, err := h.service.GetLenderOverview(r.Context(), userID)
	if err != nil {
		h.errs.handle(w, r, "load lender", err)
		return
	}

	writeJSON(w, http.StatusOK, overview)
}
