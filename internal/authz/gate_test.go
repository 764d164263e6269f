package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/lendbridge/internal/model"
	"github.com/hitoshi/lendbridge/internal/repository"
)

type mockRoleRepo struct {
	listRolesFn func(ctx context.Context, userID string) ([]string, error)
}

func (m *mockRoleRepo) ListRoles(ctx context.Context, userID string) ([]string, error) {
	if m.listRolesFn != nil {
		return m.listRolesFn(ctx, userID)
	}
	return []string{}, nil
}

var _ repository.RoleRepository = (*mockRoleRepo)(nil)

func rolesOf(roles ...string) *mockRoleRepo {
	return &mockRoleRepo{
		listRolesFn: func(ctx context.Context, userID string) ([]string, error) {
			return roles, nil
		},
	}
}

func TestGate_Allowed(t *testing.T) {
	tests := []struct {
		name     string
		held     []string
		required []string
		want     bool
	}{
		{"single matching role", []string{model.RoleLender}, []string{model.RoleLender}, true},
		{"no roles at all", []string{}, []string{model.RoleLender}, false},
		{"different role", []string{model.RoleBorrower}, []string{model.RoleLender}, false},
		{"any of several held roles matches", []string{model.RoleBorrower, model.RoleAdmin}, []string{model.RoleLender, model.RoleAdmin}, true},
		{"held role matches one of required set", []string{model.RoleLender}, []string{model.RoleLender, model.RoleAdmin}, true},
		{"nothing required", []string{model.RoleLender}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(rolesOf(tt.held...))

			got, err := gate.Allowed(context.Background(), "user-1", tt.required...)
			if err != nil {
				t.Fatalf("Allowed() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Allowed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGate_Allowed_EmptyUserID_DoesNotQuery(t *testing.T) {
	called := false
	gate := NewGate(&mockRoleRepo{
		listRolesFn: func(ctx context.Context, userID string) ([]string, error) {
			called = true
			return []string{model.RoleLender}, nil
		},
	})

	got, err := gate.Allowed(context.Background(), "", model.RoleLender)
	if err != nil {
		t.Fatalf("Allowed() error = %v", err)
	}
	if got {
		t.Error("empty user must not be allowed")
	}
	if called {
		t.Error("role store should not be queried for empty user")
	}
}

func TestGate_Allowed_StoreFailure_ReturnsError(t *testing.T) {
	gate := NewGate(&mockRoleRepo{
		listRolesFn: func(ctx context.Context, userID string) ([]string, error) {
			return nil, errors.New("connection reset")
		},
	})

	got, err := gate.Allowed(context.Background(), "user-1", model.RoleLender)
	if err == nil {
		t.Fatal("expected error on store failure")
	}
	if got {
		t.Error("store failure must not grant access")
	}
}

func TestGate_Roles(t *testing.T) {
	gate := NewGate(rolesOf(model.RoleBorrower, model.RoleLender))

	roles, err := gate.Roles(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Roles() error = %v", err)
	}
	if len(roles) != 2 {
		t.Errorf("len(roles) = %d, want 2", len(roles))
	}
}
