package lending

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hitoshi/lendbridge/internal/model"
	"github.com/hitoshi/lendbridge/internal/repository"
)

type mockLenderRepo struct {
	lender *model.Lender
}

func (m *mockLenderRepo) FindByUserID(ctx context.Context, userID string) (*model.Lender, error) {
	return m.lender, nil
}

type mockRPC struct {
	fn     string
	args   []repository.RPCArg
	result json.RawMessage
	err    error
}

func (m *mockRPC) Call(ctx context.Context, fn string, args ...repository.RPCArg) (json.RawMessage, error) {
	m.fn = fn
	m.args = args
	return m.result, m.err
}

var _ repository.LenderRepository = (*mockLenderRepo)(nil)
var _ repository.RPCCaller = (*mockRPC)(nil)

const loanID = "0b9a6c1e-59a4-4d59-8f3f-1c2d3e4f5a6b"

func TestLenderTier(t *testing.T) {
	rpc := &mockRPC{result: json.RawMessage(`{"tier":"gold"}`)}
	svc := NewService(&mockLenderRepo{lender: &model.Lender{ID: "l-1"}}, rpc)

	got, err := svc.LenderTier(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("LenderTier() error = %v", err)
	}
	if string(got) != `{"tier":"gold"}` {
		t.Errorf("result = %s", got)
	}
	if rpc.fn != "get_lender_tier" {
		t.Errorf("fn = %q", rpc.fn)
	}
	if len(rpc.args) != 1 || rpc.args[0].Name != "p_lender_id" || rpc.args[0].Value != "l-1" {
		t.Errorf("args = %+v", rpc.args)
	}
}

func TestLenderTier_NoLender_NotFound(t *testing.T) {
	rpc := &mockRPC{}
	svc := NewService(&mockLenderRepo{}, rpc)

	_, err := svc.LenderTier(context.Background(), "user-1")
	if !model.IsKind(err, model.KindNotFound) {
		t.Errorf("error = %v, want not found", err)
	}
	if rpc.fn != "" {
		t.Error("rpc must not be called")
	}
}

func TestBorrowerRiskScore(t *testing.T) {
	rpc := &mockRPC{result: json.RawMessage(`72`)}
	svc := NewService(&mockLenderRepo{}, rpc)

	got, err := svc.BorrowerRiskScore(context.Background(), loanID)
	if err != nil {
		t.Fatalf("BorrowerRiskScore() error = %v", err)
	}
	if string(got) != "72" {
		t.Errorf("result = %s", got)
	}
	if rpc.fn != "calculate_borrower_risk_score" {
		t.Errorf("fn = %q", rpc.fn)
	}
}

func TestBorrowerRiskScore_InvalidID(t *testing.T) {
	rpc := &mockRPC{}
	svc := NewService(&mockLenderRepo{}, rpc)

	_, err := svc.BorrowerRiskScore(context.Background(), "42")
	if !model.IsKind(err, model.KindInvalidInput) {
		t.Errorf("error = %v, want invalid input", err)
	}
	if rpc.fn != "" {
		t.Error("rpc must not be called")
	}
}

func TestGenerateAgreement_PassesCaller(t *testing.T) {
	rpc := &mockRPC{result: json.RawMessage(`{"agreement_id":"a-1"}`)}
	svc := NewService(&mockLenderRepo{}, rpc)

	if _, err := svc.GenerateAgreement(context.Background(), loanID, "user-1"); err != nil {
		t.Fatalf("GenerateAgreement() error = %v", err)
	}
	if rpc.fn != "generate_loan_agreement" {
		t.Errorf("fn = %q", rpc.fn)
	}
	if len(rpc.args) != 2 || rpc.args[1].Name != "p_generated_by" || rpc.args[1].Value != "user-1" {
		t.Errorf("args = %+v", rpc.args)
	}
}

func TestGenerateAgreement_RPCNotFound(t *testing.T) {
	rpcErr := &model.APIError{Kind: model.KindNotFound, Code: model.ErrCodeRecordNotFound, Message: "loan not found"}
	svc := NewService(&mockLenderRepo{}, &mockRPC{err: rpcErr})

	_, err := svc.GenerateAgreement(context.Background(), loanID, "user-1")
	if !model.IsKind(err, model.KindNotFound) {
		t.Errorf("error = %v, want not found", err)
	}
}
