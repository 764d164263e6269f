// Package invite は貸し手から借り手への招待を提供する。
package invite

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/hitoshi/lendbridge/internal/model"
	"github.com/hitoshi/lendbridge/internal/repository"
	"github.com/hitoshi/lendbridge/internal/security"
)

// 招待メッセージの最大文字数
const maxMessageRunes = 1000

// createInviteRPC は招待レコードを作成するストアドファンクション名。
const createInviteRPC = "create_borrower_invite"

// Request は招待リクエストのボディ。
type Request struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Message   string `json:"message"`
}

// Result は招待結果。
type Result struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	InviteID string `json:"invite_id,omitempty"`
}

// Service は招待のサービス層。
type Service struct {
	lenders   repository.LenderRepository
	rpc       repository.RPCCaller
	sanitizer security.TextSanitizerService
}

// NewService はServiceを生成する。
func NewService(lenders repository.LenderRepository, rpc repository.RPCCaller, sanitizer security.TextSanitizerService) *Service {
	return &Service{lenders: lenders, rpc: rpc, sanitizer: sanitizer}
}

// Invite は呼び出し元の貸し手として借り手を招待する。
// 呼び出し元に貸し手レコードがない場合はNotFoundを返す。
func (s *Service) Invite(ctx context.Context, userID string, req Request) (*Result, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return nil, model.NewMissingFieldsError([]string{"email"})
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, model.NewInvalidEmailError(email)
	}
	email = strings.ToLower(addr.Address)

	lender, err := s.lenders.FindByUserID(ctx, userID)
	if err != nil {
		return nil, model.NewBackendError("load lender", err)
	}
	if lender == nil {
		return nil, model.NewLenderNotFoundError()
	}

	invite := model.BorrowerInvite{
		LenderID:  lender.ID,
		Email:     email,
		FirstName: s.sanitizer.SanitizeText(req.FirstName, 255),
		LastName:  s.sanitizer.SanitizeText(req.LastName, 255),
		Message:   s.sanitizer.SanitizeText(req.Message, maxMessageRunes),
	}

	raw, err := s.rpc.Call(ctx, createInviteRPC,
		repository.RPCArg{Name: "p_lender_id", Value: invite.LenderID},
		repository.RPCArg{Name: "p_email", Value: invite.Email},
		repository.RPCArg{Name: "p_first_name", Value: invite.FirstName},
		repository.RPCArg{Name: "p_last_name", Value: invite.LastName},
		repository.RPCArg{Name: "p_message", Value: invite.Message},
	)
	if err != nil {
		return nil, err
	}

	inviteID := extractInviteID(raw)

	slog.Info("borrower invite created",
		slog.String("lender_id", lender.ID),
		slog.String("invite_id", inviteID),
	)

	return &Result{
		Success:  true,
		Message:  "Invitation sent to " + email,
		InviteID: inviteID,
	}, nil
}

// extractInviteID はRPC結果から招待IDを取り出す。
// 関数はUUID文字列、または{"id": ...} / {"invite_id": ...}を返しうる。
func extractInviteID(raw json.RawMessage) string {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}

	var obj struct {
		ID       string `json:"id"`
		InviteID string `json:"invite_id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.InviteID != "" {
			return obj.InviteID
		}
		return obj.ID
	}
	return ""
}
