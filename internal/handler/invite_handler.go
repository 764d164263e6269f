package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/lendbridge/internal/invite"
)

// InviteServiceInterface は招待ハンドラーが必要とするサービスインターフェース。
type InviteServiceInterface interface {
	Invite(ctx context.Context, userID string, req invite.Request) (*invite.Result, error)
}

// InviteHandler は貸し手による借り手招待のHTTPハンドラー。
type InviteHandler struct {
	service InviteServiceInterface
	errs    errorResponder
}

// NewInviteHandler はInviteHandlerを生成する。
func NewInviteHandler(service InviteServiceInterface, failures BackendFailureRecorder) *InviteHandler {
	return &InviteHandler{
		service: service,
		errs:    errorResponder{failures: failures},
	}
}

// CreateInvite は借り手への招待を作成する。lenderロールが必要。
// POST /api/lender/invites
func (h *InviteHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req invite.Request
	if err := decodeJSONBody(w, r, &req); err != nil {
		h.errs.handle(w, r, "create invite", err)
		return
	}

	result, err := h.service.Invite(r.Context(), userID, req)
	if err != nil {
		h.errs.handle(w, r, "create invite", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
