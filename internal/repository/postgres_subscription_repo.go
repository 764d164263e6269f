package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/lendbridge/internal/model"
)

// PostgresSubscriptionRepo はPostgreSQLを使用した契約リポジトリ。
type PostgresSubscriptionRepo struct {
	db *sql.DB
}

// NewPostgresSubscriptionRepo はPostgresSubscriptionRepoを生成する。
func NewPostgresSubscriptionRepo(db *sql.DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

// FindLatestByUserID は指定ユーザー（貸し手）の最新の契約を返す。
// 貸し手レコードを経由してJOINするため、貸し手検索と独立して実行できる。
func (r *PostgresSubscriptionRepo) FindLatestByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	s := &model.Subscription{}
	var periodEnd sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT s.id, s.lender_id, s.plan, s.status, s.current_period_end
		 FROM subscriptions s
		 JOIN lenders l ON l.id = s.lender_id
		 WHERE l.user_id = $1
		 ORDER BY s.created_at DESC
		 LIMIT 1`,
		userID,
	).Scan(&s.ID, &s.LenderID, &s.Plan, &s.Status, &periodEnd)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}

	if periodEnd.Valid {
		s.CurrentPeriodEnd = &periodEnd.Time
	}
	return s, nil
}
