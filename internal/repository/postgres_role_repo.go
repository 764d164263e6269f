package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRoleRepo はPostgreSQLを使用したロールリポジトリ。
type PostgresRoleRepo struct {
	db *sql.DB
}

// NewPostgresRoleRepo はPostgresRoleRepoを生成する。
func NewPostgresRoleRepo(db *sql.DB) *PostgresRoleRepo {
	return &PostgresRoleRepo{db: db}
}

// listRolesQuery はuser_rolesとprofiles.roleを統合する。
// どちらか一方にしか存在しないロールも有効として扱う。
const listRolesQuery = `
SELECT role FROM user_roles WHERE user_id = $1
UNION
SELECT role FROM profiles WHERE id = $1 AND role IS NOT NULL AND role <> ''
ORDER BY role`

// ListRoles はユーザーが保持する全ロールを返す。
func (r *PostgresRoleRepo) ListRoles(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listRolesQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	roles := []string{}
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roles: %w", err)
	}

	return roles, nil
}
