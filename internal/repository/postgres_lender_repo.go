package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/lendbridge/internal/model"
)

// PostgresLenderRepo はPostgreSQLを使用した貸し手リポジトリ。
type PostgresLenderRepo struct {
	db *sql.DB
}

// NewPostgresLenderRepo はPostgresLenderRepoを生成する。
func NewPostgresLenderRepo(db *sql.DB) *PostgresLenderRepo {
	return &PostgresLenderRepo{db: db}
}

// FindByUserID はuser_idで貸し手を検索する。見つからない場合はnilを返す。
func (r *PostgresLenderRepo) FindByUserID(ctx context.Context, userID string) (*model.Lender, error) {
	l := &model.Lender{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, company_name, email, tier, created_at FROM lenders WHERE user_id = $1`,
		userID,
	).Scan(&l.ID, &l.UserID, &l.CompanyName, &l.Email, &l.Tier, &l.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find lender by user ID: %w", err)
	}

	return l, nil
}
