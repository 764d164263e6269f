// Package lending はホスト側ストアドファンクションで実装された
// 与信スコア・ティア判定・契約書生成の呼び出しを提供する。
package lending

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/hitoshi/lendbridge/internal/model"
	"github.com/hitoshi/lendbridge/internal/repository"
)

// ストアドファンクション名
const (
	rpcLenderTier        = "get_lender_tier"
	rpcBorrowerRiskScore = "calculate_borrower_risk_score"
	rpcLoanAgreement     = "generate_loan_agreement"
)

// Service はRPC呼び出しのサービス層。結果のJSONは加工せずに返す。
type Service struct {
	lenders repository.LenderRepository
	rpc     repository.RPCCaller
}

// NewService はServiceを生成する。
func NewService(lenders repository.LenderRepository, rpc repository.RPCCaller) *Service {
	return &Service{lenders: lenders, rpc: rpc}
}

// LenderTier は呼び出し元の貸し手のティアを返す。
func (s *Service) LenderTier(ctx context.Context, userID string) (json.RawMessage, error) {
	lender, err := s.lenders.FindByUserID(ctx, userID)
	if err != nil {
		return nil, model.NewBackendError("load lender", err)
	}
	if lender == nil {
		return nil, model.NewLenderNotFoundError()
	}

	return s.rpc.Call(ctx, rpcLenderTier,
		repository.RPCArg{Name: "p_lender_id", Value: lender.ID},
	)
}

// BorrowerRiskScore は借り手の与信スコアを算出する。
func (s *Service) BorrowerRiskScore(ctx context.Context, borrowerID string) (json.RawMessage, error) {
	if err := requireUUID("borrower id", borrowerID); err != nil {
		return nil, err
	}

	return s.rpc.Call(ctx, rpcBorrowerRiskScore,
		repository.RPCArg{Name: "p_borrower_id", Value: borrowerID},
	)
}

// GenerateAgreement はローン契約書を生成する。生成者として呼び出し元を記録する。
func (s *Service) GenerateAgreement(ctx context.Context, loanID, userID string) (json.RawMessage, error) {
	if err := requireUUID("loan id", loanID); err != nil {
		return nil, err
	}

	return s.rpc.Call(ctx, rpcLoanAgreement,
		repository.RPCArg{Name: "p_loan_id", Value: loanID},
		repository.RPCArg{Name: "p_generated_by", Value: userID},
	)
}

func requireUUID(field, value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return &model.APIError{
			Kind:    model.KindInvalidInput,
			Code:    model.ErrCodeInvalidRequest,
			Message: field + " must be a valid UUID",
		}
	}
	return nil
}
