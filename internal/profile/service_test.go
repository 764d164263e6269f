package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/lendbridge/internal/model"
	"github.com/hitoshi/lendbridge/internal/repository"
)

// --- モック ---

type mockProfileRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.Profile, error)
}

func (m *mockProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

type mockRoleRepo struct {
	listRolesFn func(ctx context.Context, userID string) ([]string, error)
}

func (m *mockRoleRepo) ListRoles(ctx context.Context, userID string) ([]string, error) {
	if m.listRolesFn != nil {
		return m.listRolesFn(ctx, userID)
	}
	return nil, nil
}

type mockBorrowerRepo struct {
	findByUserIDFn func(ctx context.Context, userID string) (*model.Borrower, error)
}

func (m *mockBorrowerRepo) FindByUserID(ctx context.Context, userID string) (*model.Borrower, error) {
	if m.findByUserIDFn != nil {
		return m.findByUserIDFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockBorrowerRepo) FindByID(ctx context.Context, id string) (*model.Borrower, error) {
	return nil, nil
}

type mockLenderRepo struct {
	findByUserIDFn func(ctx context.Context, userID string) (*model.Lender, error)
}

func (m *mockLenderRepo) FindByUserID(ctx context.Context, userID string) (*model.Lender, error) {
	if m.findByUserIDFn != nil {
		return m.findByUserIDFn(ctx, userID)
	}
	return nil, nil
}

type mockSubscriptionRepo struct {
	findLatestFn func(ctx context.Context, userID string) (*model.Subscription, error)
}

func (m *mockSubscriptionRepo) FindLatestByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	if m.findLatestFn != nil {
		return m.findLatestFn(ctx, userID)
	}
	return nil, nil
}

var _ repository.ProfileRepository = (*mockProfileRepo)(nil)
var _ repository.RoleRepository = (*mockRoleRepo)(nil)
var _ repository.BorrowerRepository = (*mockBorrowerRepo)(nil)
var _ repository.LenderRepository = (*mockLenderRepo)(nil)
var _ repository.SubscriptionRepository = (*mockSubscriptionRepo)(nil)

func newTestService(p *mockProfileRepo, r *mockRoleRepo, b *mockBorrowerRepo, l *mockLenderRepo, s *mockSubscriptionRepo) *Service {
	if p == nil {
		p = &mockProfileRepo{}
	}
	if r == nil {
		r = &mockRoleRepo{}
	}
	if b == nil {
		b = &mockBorrowerRepo{}
	}
	if l == nil {
		l = &mockLenderRepo{}
	}
	if s == nil {
		s = &mockSubscriptionRepo{}
	}
	return NewService(p, r, b, l, s)
}

// --- テスト ---

func TestService_GetOverview_ReturnsProfileAndRoles(t *testing.T) {
	svc := newTestService(
		&mockProfileRepo{findByIDFn: func(ctx context.Context, id string) (*model.Profile, error) {
			return &model.Profile{ID: id, Role: model.RoleLender, FullName: "Jane Doe"}, nil
		}},
		&mockRoleRepo{listRolesFn: func(ctx context.Context, userID string) ([]string, error) {
			return []string{model.RoleAdmin, model.RoleLender}, nil
		}},
		nil, nil, nil,
	)

	overview, err := svc.GetOverview(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetOverview() error = %v", err)
	}
	if overview.Profile.FullName != "Jane Doe" {
		t.Errorf("FullName = %q", overview.Profile.FullName)
	}
	if len(overview.Roles) != 2 {
		t.Errorf("len(Roles) = %d, want 2", len(overview.Roles))
	}
}

func TestService_GetOverview_NoProfile_NotFound(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil, nil)

	_, err := svc.GetOverview(context.Background(), "user-1")
	if !model.IsKind(err, model.KindNotFound) {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestService_GetOverview_NilRoles_BecomesEmptySlice(t *testing.T) {
	svc := newTestService(
		&mockProfileRepo{findByIDFn: func(ctx context.Context, id string) (*model.Profile, error) {
			return &model.Profile{ID: id}, nil
		}},
		nil, nil, nil, nil,
	)

	overview, err := svc.GetOverview(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetOverview() error = %v", err)
	}
	if overview.Roles == nil {
		t.Error("Roles should be an empty slice, not nil")
	}
}

func TestService_GetOverview_RoleStoreFailure(t *testing.T) {
	svc := newTestService(
		&mockProfileRepo{findByIDFn: func(ctx context.Context, id string) (*model.Profile, error) {
			return &model.Profile{ID: id}, nil
		}},
		&mockRoleRepo{listRolesFn: func(ctx context.Context, userID string) ([]string, error) {
			return nil, errors.New("timeout")
		}},
		nil, nil, nil,
	)

	_, err := svc.GetOverview(context.Background(), "user-1")
	if !model.IsKind(err, model.KindBackendFailure) {
		t.Errorf("error = %v, want backend failure", err)
	}
}

func TestService_GetBorrower(t *testing.T) {
	svc := newTestService(nil, nil,
		&mockBorrowerRepo{findByUserIDFn: func(ctx context.Context, userID string) (*model.Borrower, error) {
			if userID == "user-1" {
				return &model.Borrower{ID: "b-1", UserID: userID}, nil
			}
			return nil, nil
		}},
		nil, nil,
	)

	b, err := svc.GetBorrower(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetBorrower() error = %v", err)
	}
	if b.ID != "b-1" {
		t.Errorf("ID = %q, want %q", b.ID, "b-1")
	}

	_, err = svc.GetBorrower(context.Background(), "user-2")
	if !model.IsKind(err, model.KindNotFound) {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestService_GetLenderOverview_FetchesLenderAndSubscription(t *testing.T) {
	end := time.Now().Add(30 * 24 * time.Hour)
	svc := newTestService(nil, nil, nil,
		&mockLenderRepo{findByUserIDFn: func(ctx context.Context, userID string) (*model.Lender, error) {
			return &model.Lender{ID: "l-1", UserID: userID, Tier: "pro"}, nil
		}},
		&mockSubscriptionRepo{findLatestFn: func(ctx context.Context, userID string) (*model.Subscription, error) {
			return &model.Subscription{ID: "s-1", LenderID: "l-1", Status: "active", CurrentPeriodEnd: &end}, nil
		}},
	)

	overview, err := svc.GetLenderOverview(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetLenderOverview() error = %v", err)
	}
	if overview.Lender.ID != "l-1" {
		t.Errorf("Lender.ID = %q", overview.Lender.ID)
	}
	if overview.Subscription == nil || overview.Subscription.ID != "s-1" {
		t.Errorf("unexpected subscription: %+v", overview.Subscription)
	}
}

func TestService_GetLenderOverview_NoSubscription(t *testing.T) {
	svc := newTestService(nil, nil, nil,
		&mockLenderRepo{findByUserIDFn: func(ctx context.Context, userID string) (*model.Lender, error) {
			return &model.Lender{ID: "l-1"}, nil
		}},
		nil,
	)

	overview, err := svc.GetLenderOverview(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetLenderOverview() error = %v", err)
	}
	if overview.Subscription != nil {
		t.Error("expected nil subscription")
	}
}

func TestService_GetLenderOverview_NoLender_NotFound(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil, nil)

	_, err := svc.GetLenderOverview(context.Background(), "user-1")
	if !model.IsKind(err, model.KindNotFound) {
		t.Errorf("error = %v, want not found", err)
	}

	_, err = svc.GetLender(context.Background(), "user-1")
	if !model.IsKind(err, model.KindNotFound) {
		t.Errorf("GetLender error = %v, want not found", err)
	}
}
