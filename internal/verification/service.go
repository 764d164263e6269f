// Package verification は借り手の本人確認状態の判定を提供する。
package verification

import (
	"context"

	"github.com/hitoshi/lendbridge/internal/model"
	"github.com/hitoshi/lendbridge/internal/repository"
)

// Status は本人確認状態のレスポンス。
// タイムスタンプを含めないため、バックエンド状態が同じなら常に同一の内容になる。
type Status struct {
	UserID             string                   `json:"user_id"`
	HasBorrowerRecord  bool                     `json:"has_borrower_record"`
	VerificationStatus model.VerificationStatus `json:"verification_status"`
	Message            string                   `json:"message"`
	RedirectTo         string                   `json:"redirect_to"`
	BorrowerID         string                   `json:"borrower_id,omitempty"`
}

// 遷移先
const (
	PathOnboarding           = "/onboarding"
	PathOnboardingVerify     = "/onboarding/verify"
	PathVerificationPending  = "/verification/pending"
	PathVerificationRejected = "/verification/rejected"
	PathDashboard            = "/dashboard"
)

// Service は本人確認状態の判定を行う。
type Service struct {
	borrowers repository.BorrowerRepository
}

// NewService はServiceを生成する。
func NewService(borrowers repository.BorrowerRepository) *Service {
	return &Service{borrowers: borrowers}
}

// GetStatus はuserIDの本人確認状態と次の遷移先を返す。
func (s *Service) GetStatus(ctx context.Context, userID string) (*Status, error) {
	b, err := s.borrowers.FindByUserID(ctx, userID)
	if err != nil {
		return nil, model.NewBackendError("load borrower", err)
	}

	if b == nil {
		return &Status{
			UserID:             userID,
			HasBorrowerRecord:  false,
			VerificationStatus: model.VerificationNotStarted,
			Message:            "No borrower profile found. Please complete onboarding to continue.",
			RedirectTo:         PathOnboarding,
		}, nil
	}

	st := &Status{
		UserID:            userID,
		HasBorrowerRecord: true,
		BorrowerID:        b.ID,
	}

	switch b.VerificationStatus {
	case model.VerificationPending:
		st.VerificationStatus = model.VerificationPending
		st.Message = "Your identity verification is pending review. We will notify you once it is complete."
		st.RedirectTo = PathVerificationPending
	case model.VerificationVerified:
		st.VerificationStatus = model.VerificationVerified
		st.Message = "Your identity has been verified."
		st.RedirectTo = PathDashboard
	case model.VerificationRejected:
		st.VerificationStatus = model.VerificationRejected
		st.Message = "Your identity verification was rejected. Please review the details and resubmit."
		st.RedirectTo = PathVerificationRejected
	default:
		st.VerificationStatus = model.VerificationNotStarted
		st.Message = "Identity verification has not been started. Please verify your identity to continue."
		st.RedirectTo = PathOnboardingVerify
	}

	return st, nil
}
