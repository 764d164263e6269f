package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/lendbridge/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	p := &model.Profile{}
	var role, avatarURL, customerID sql.NullString
	var updatedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, role, full_name, email, avatar_url, stripe_customer_id, created_at, updated_at
		 FROM profiles WHERE id = $1`,
		id,
	).Scan(&p.ID, &role, &p.FullName, &p.Email, &avatarURL, &customerID, &p.CreatedAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by ID: %w", err)
	}

	p.Role = role.String
	if avatarURL.Valid {
		p.AvatarURL = &avatarURL.String
	}
	if customerID.Valid {
		p.StripeCustomerID = &customerID.String
	}
	if updatedAt.Valid {
		p.UpdatedAt = &updatedAt.Time
	}

	return p, nil
}
