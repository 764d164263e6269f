// Package billing は課金プロバイダーのカスタマーポータル連携を提供する。
package billing

import (
	"context"
	"strings"

	"github.com/hitoshi/lendbridge/internal/model"
	"github.com/hitoshi/lendbridge/internal/repository"
)

// PortalCreator はカスタマーポータルセッションの発行インターフェース。
type PortalCreator interface {
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// Service は課金ポータルのサービス層。
type Service struct {
	profiles  repository.ProfileRepository
	portal    PortalCreator
	returnURL string
}

// NewService はServiceを生成する。
// portalがnilの場合、課金は未設定として扱いBillingUnavailableを返す。
func NewService(profiles repository.ProfileRepository, portal PortalCreator, appBaseURL string) *Service {
	return &Service{
		profiles:  profiles,
		portal:    portal,
		returnURL: strings.TrimRight(appBaseURL, "/") + "/settings/billing",
	}
}

// CreatePortalSession はuserIDの課金顧客に対するポータルURLを発行する。
// プロフィールまたは課金顧客IDがない場合はNotFoundを返す。
func (s *Service) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	if s.portal == nil {
		return "", model.NewBillingUnavailableError()
	}

	p, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		return "", model.NewBackendError("load profile", err)
	}
	if p == nil || p.StripeCustomerID == nil || *p.StripeCustomerID == "" {
		return "", model.NewBillingNotFoundError()
	}

	url, err := s.portal.CreatePortalSession(ctx, *p.StripeCustomerID, s.returnURL)
	if err != nil {
		return "", model.NewBackendError("create billing portal session", err)
	}
	return url, nil
}
