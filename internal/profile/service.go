// Package profile はプロフィール・借り手・貸し手レコードの参照ロジックを提供する。
package profile

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/lendbridge/internal/model"
	"github.com/hitoshi/lendbridge/internal/repository"
)

// Overview はプロフィールと保持ロールの組。
type Overview struct {
	Profile *model.Profile `json:"profile"`
	Roles   []string       `json:"roles"`
}

// LenderOverview は貸し手レコードと最新の契約の組。
type LenderOverview struct {
	Lender       *model.Lender       `json:"lender"`
	Subscription *model.Subscription `json:"subscription"`
}

// Service はプロフィール参照のサービス層。
type Service struct {
	profiles      repository.ProfileRepository
	roles         repository.RoleRepository
	borrowers     repository.BorrowerRepository
	lenders       repository.LenderRepository
	subscriptions repository.SubscriptionRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	profiles repository.ProfileRepository,
	roles repository.RoleRepository,
	borrowers repository.BorrowerRepository,
	lenders repository.LenderRepository,
	subscriptions repository.SubscriptionRepository,
) *Service {
	return &Service{
		profiles:      profiles,
		roles:         roles,
		borrowers:     borrowers,
		lenders:       lenders,
		subscriptions: subscriptions,
	}
}

// GetOverview はプロフィールとロール一覧を並行して取得する。
// プロフィールが存在しない場合はNotFoundを返す。
func (s *Service) GetOverview(ctx context.Context, userID string) (*Overview, error) {
	var p *model.Profile
	var roles []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p, err = s.profiles.FindByID(gctx, userID)
		if err != nil {
			return model.NewBackendError("load profile", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		roles, err = s.roles.ListRoles(gctx, userID)
		if err != nil {
			return model.NewBackendError("load roles", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if p == nil {
		return nil, model.NewProfileNotFoundError()
	}
	if roles == nil {
		roles = []string{}
	}
	return &Overview{Profile: p, Roles: roles}, nil
}

// GetBorrower はuserIDに紐づく借り手レコードを返す。存在しない場合はNotFound。
func (s *Service) GetBorrower(ctx context.Context, userID string) (*model.Borrower, error) {
	b, err := s.borrowers.FindByUserID(ctx, userID)
	if err != nil {
		return nil, model.NewBackendError("load borrower", err)
	}
	if b == nil {
		return nil, model.NewBorrowerNotFoundError()
	}
	return b, nil
}

// GetLender はuserIDに紐づく貸し手レコードを返す。存在しない場合はNotFound。
func (s *Service) GetLender(ctx context.Context, userID string) (*model.Lender, error) {
	l, err := s.lenders.FindByUserID(ctx, userID)
	if err != nil {
		return nil, model.NewBackendError("load lender", err)
	}
	if l == nil {
		return nil, model.NewLenderNotFoundError()
	}
	return l, nil
}

// GetLenderOverview は貸し手レコードと契約を並行して取得する。
// 契約がない場合はSubscription=nilとなる。貸し手がない場合はNotFound。
func (s *Service) GetLenderOverview(ctx context.Context, userID string) (*LenderOverview, error) {
	var lender *model.Lender
	var sub *model.Subscription

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lender, err = s.lenders.FindByUserID(gctx, userID)
		if err != nil {
			return model.NewBackendError("load lender", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		sub, err = s.subscriptions.FindLatestByUserID(gctx, userID)
		if err != nil {
			return model.NewBackendError("load subscription", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if lender == nil {
		return nil, model.NewLenderNotFoundError()
	}
	return &LenderOverview{Lender: lender, Subscription: sub}, nil
}
