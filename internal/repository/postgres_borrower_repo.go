package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/lendbridge/internal/model"
)

// PostgresBorrowerRepo はPostgreSQLを使用した借り手リポジトリ。
type PostgresBorrowerRepo struct {
	db *sql.DB
}

// NewPostgresBorrowerRepo はPostgresBorrowerRepoを生成する。
func NewPostgresBorrowerRepo(db *sql.DB) *PostgresBorrowerRepo {
	return &PostgresBorrowerRepo{db: db}
}

const borrowerColumns = `id, user_id, first_name, last_name, email, verification_status, created_at`

// FindByUserID はuser_idで借り手を検索する。見つからない場合はnilを返す。
func (r *PostgresBorrowerRepo) FindByUserID(ctx context.Context, userID string) (*model.Borrower, error) {
	return r.findOne(ctx, `SELECT `+borrowerColumns+` FROM borrowers WHERE user_id = $1`, userID)
}

// FindByID は指定IDの借り手を取得する。見つからない場合はnilを返す。
func (r *PostgresBorrowerRepo) FindByID(ctx context.Context, id string) (*model.Borrower, error) {
	return r.findOne(ctx, `SELECT `+borrowerColumns+` FROM borrowers WHERE id = $1`, id)
}

func (r *PostgresBorrowerRepo) findOne(ctx context.Context, query string, arg string) (*model.Borrower, error) {
	b := &model.Borrower{}
	var userID sql.NullString
	var status string

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&b.ID, &userID, &b.FirstName, &b.LastName, &b.Email, &status, &b.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find borrower: %w", err)
	}

	b.UserID = userID.String
	b.VerificationStatus = model.VerificationStatus(status)
	return b, nil
}
