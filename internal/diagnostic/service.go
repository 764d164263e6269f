// Package diagnostic はアカウント状態の調査用ルックアップを提供する。
// 内部調査用であり、ENABLE_DIAGNOSTICSが有効な場合のみルーティングされる。
package diagnostic

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/lendbridge/internal/auth"
	"github.com/hitoshi/lendbridge/internal/model"
	"github.com/hitoshi/lendbridge/internal/repository"
)

// AuthUserFetcher は認証サービスの管理APIからユーザーを取得する。
type AuthUserFetcher interface {
	GetUserByID(ctx context.Context, userID string) (*auth.AdminUser, error)
}

// AccountReport はアカウント診断の結果。存在しないレコードはnull。
type AccountReport struct {
	AuthUser     *auth.AdminUser     `json:"auth_user"`
	Profile      *model.Profile      `json:"profile"`
	Lender       *model.Lender       `json:"lender"`
	Subscription *model.Subscription `json:"subscription"`
}

// Service はアカウント診断のサービス層。
type Service struct {
	authUsers     AuthUserFetcher
	profiles      repository.ProfileRepository
	lenders       repository.LenderRepository
	subscriptions repository.SubscriptionRepository
}

// NewService はServiceを生成する。authUsersがnilの場合は認証ユーザーを照会しない。
func NewService(
	authUsers AuthUserFetcher,
	profiles repository.ProfileRepository,
	lenders repository.LenderRepository,
	subscriptions repository.SubscriptionRepository,
) *Service {
	return &Service{
		authUsers:     authUsers,
		profiles:      profiles,
		lenders:       lenders,
		subscriptions: subscriptions,
	}
}

// InspectAccount は各ストアを並行に照会し、結果をまとめて返す。
// いずれかが失敗した場合は生のエラーをDetailsに持つBackendFailureを返す。
func (s *Service) InspectAccount(ctx context.Context, userID string) (*AccountReport, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, model.NewInvalidUserIDError()
	}

	report := &AccountReport{}
	g, gctx := errgroup.WithContext(ctx)

	if s.authUsers != nil {
		g.Go(func() error {
			u, err := s.authUsers.GetUserByID(gctx, userID)
			if err != nil {
				return model.NewBackendError("load auth user", err)
			}
			report.AuthUser = u
			return nil
		})
	}
	g.Go(func() error {
		p, err := s.profiles.FindByID(gctx, userID)
		if err != nil {
			return model.NewBackendError("load profile", err)
		}
		report.Profile = p
		return nil
	})
	g.Go(func() error {
		l, err := s.lenders.FindByUserID(gctx, userID)
		if err != nil {
			return model.NewBackendError("load lender", err)
		}
		report.Lender = l
		return nil
	})
	g.Go(func() error {
		sub, err := s.subscriptions.FindLatestByUserID(gctx, userID)
		if err != nil {
			return model.NewBackendError("load subscription", err)
		}
		report.Subscription = sub
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}
