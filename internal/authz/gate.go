// Package authz はロールに基づく認可判定を提供する。
package authz

import (
	"context"
	"fmt"

	"github.com/hitoshi/lendbridge/internal/repository"
)

// Gate はIdentityのロール情報を取得し、必要ロールを満たすかを判定する。
type Gate struct {
	roles repository.RoleRepository
}

// NewGate はGateを生成する。
func NewGate(roles repository.RoleRepository) *Gate {
	return &Gate{roles: roles}
}

// Allowed はuserIDが required のいずれかのロールを持つかを返す。
// 複数ロールを持つ場合は1つでも一致すれば許可する（OR）。
// プロフィールやロール行が存在しない場合はエラーではなくfalseを返す。
func (g *Gate) Allowed(ctx context.Context, userID string, required ...string) (bool, error) {
	if userID == "" || len(required) == 0 {
		return false, nil
	}

	held, err := g.roles.ListRoles(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load roles: %w", err)
	}

	return anyMatch(held, required), nil
}

// Roles はuserIDが保持する全ロールを返す。
func (g *Gate) Roles(ctx context.Context, userID string) ([]string, error) {
	roles, err := g.roles.ListRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	return roles, nil
}

func anyMatch(held, required []string) bool {
	for _, h := range held {
		for _, r := range required {
			if h == r {
				return true
			}
		}
	}
	return false
}
