package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/lendbridge/internal/model"
)

// PostgresDocumentRepo はPostgreSQLを使用した書類メタデータリポジトリ。
type PostgresDocumentRepo struct {
	db *sql.DB
}

// NewPostgresDocumentRepo はPostgresDocumentRepoを生成する。
func NewPostgresDocumentRepo(db *sql.DB) *PostgresDocumentRepo {
	return &PostgresDocumentRepo{db: db}
}

// Create は書類メタデータを作成する。
// ExifDataが空の場合はNULLとして保存する。
func (r *PostgresDocumentRepo) Create(ctx context.Context, doc *model.BorrowerDocument) error {
	var exif any
	if len(doc.ExifData) > 0 {
		exif = string(doc.ExifData)
	}
	flags := doc.RiskFlags
	if flags == nil {
		flags = []string{}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO borrower_documents
		   (id, borrower_id, document_type, file_name, file_path, file_size, mime_type,
		    exif_data, missing_exif_data, risk_score, risk_flags, uploaded_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		doc.ID, doc.BorrowerID, doc.DocumentType, doc.FileName, doc.FilePath, doc.FileSize, doc.MimeType,
		exif, doc.MissingExifData, doc.RiskScore, pq.Array(flags), doc.UploadedBy, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert borrower document: %w", err)
	}
	return nil
}

// ListByBorrowerID は借り手の書類をcreated_at降順で返す。
func (r *PostgresDocumentRepo) ListByBorrowerID(ctx context.Context, borrowerID string) ([]*model.BorrowerDocument, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, borrower_id, document_type, file_name, file_path, file_size, mime_type,
		        exif_data, missing_exif_data, risk_score, risk_flags, uploaded_by, created_at
		 FROM borrower_documents
		 WHERE borrower_id = $1
		 ORDER BY created_at DESC`,
		borrowerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list borrower documents: %w", err)
	}
	defer rows.Close()

	docs := []*model.BorrowerDocument{}
	for rows.Next() {
		d := &model.BorrowerDocument{}
		var exif []byte
		var uploadedBy sql.NullString
		if err := rows.Scan(
			&d.ID, &d.BorrowerID, &d.DocumentType, &d.FileName, &d.FilePath, &d.FileSize, &d.MimeType,
			&exif, &d.MissingExifData, &d.RiskScore, pq.Array(&d.RiskFlags), &uploadedBy, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan borrower document: %w", err)
		}
		if len(exif) > 0 {
			d.ExifData = exif
		}
		if uploadedBy.Valid {
			d.UploadedBy = &uploadedBy.String
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate borrower documents: %w", err)
	}

	return docs, nil
}
