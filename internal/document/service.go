// Package document は借り手書類メタデータの登録とリスク判定を提供する。
package document

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/lendbridge/internal/model"
	"github.com/hitoshi/lendbridge/internal/repository"
)

// UploadRequest は書類アップロード完了時に送られるメタデータ。
// ファイル本体はクライアントがストレージへ直接アップロード済みである前提。
type UploadRequest struct {
	BorrowerID   string          `json:"borrower_id"`
	DocumentType string          `json:"document_type"`
	FileName     string          `json:"file_name"`
	FilePath     string          `json:"file_path"`
	FileSize     int64           `json:"file_size"`
	MimeType     string          `json:"mime_type"`
	ExifData     json.RawMessage `json:"exif_data"`
}

// missingFields は未入力の必須フィールド名を返す。
func (r *UploadRequest) missingFields() []string {
	var missing []string
	if strings.TrimSpace(r.BorrowerID) == "" {
		missing = append(missing, "borrower_id")
	}
	if strings.TrimSpace(r.DocumentType) == "" {
		missing = append(missing, "document_type")
	}
	if strings.TrimSpace(r.FileName) == "" {
		missing = append(missing, "file_name")
	}
	if strings.TrimSpace(r.FilePath) == "" {
		missing = append(missing, "file_path")
	}
	return missing
}

// Service は書類メタデータのサービス層。
type Service struct {
	documents repository.DocumentRepository
	borrowers repository.BorrowerRepository
}

// NewService はServiceを生成する。
func NewService(documents repository.DocumentRepository, borrowers repository.BorrowerRepository) *Service {
	return &Service{documents: documents, borrowers: borrowers}
}

// Upload は書類メタデータを検証し、リスク判定をしたうえで登録する。
// uploadedByはセッションがない場合は空文字。
// 検証エラー時はレコードを作成しない。
func (s *Service) Upload(ctx context.Context, req UploadRequest, uploadedBy string) (*model.BorrowerDocument, error) {
	if missing := req.missingFields(); len(missing) > 0 {
		return nil, model.NewMissingFieldsError(missing)
	}
	if _, err := uuid.Parse(req.BorrowerID); err != nil {
		return nil, &model.APIError{
			Kind:    model.KindInvalidInput,
			Code:    model.ErrCodeInvalidRequest,
			Message: "borrower_id must be a valid UUID",
		}
	}
	if req.FileSize < 0 {
		return nil, &model.APIError{
			Kind:    model.KindInvalidInput,
			Code:    model.ErrCodeInvalidRequest,
			Message: "file_size must not be negative",
		}
	}

	borrower, err := s.borrowers.FindByID(ctx, req.BorrowerID)
	if err != nil {
		return nil, model.NewBackendError("load borrower", err)
	}
	if borrower == nil {
		return nil, model.NewBorrowerNotFoundError()
	}

	assessment := Assess(req.ExifData)

	doc := &model.BorrowerDocument{
		ID:              uuid.New().String(),
		BorrowerID:      borrower.ID,
		DocumentType:    strings.TrimSpace(req.DocumentType),
		FileName:        strings.TrimSpace(req.FileName),
		FilePath:        strings.TrimSpace(req.FilePath),
		FileSize:        req.FileSize,
		MimeType:        req.MimeType,
		MissingExifData: assessment.MissingExif,
		RiskScore:       assessment.Score,
		RiskFlags:       assessment.Flags,
		CreatedAt:       time.Now().UTC(),
	}
	if !assessment.MissingExif {
		doc.ExifData = req.ExifData
	}
	if uploadedBy != "" {
		doc.UploadedBy = &uploadedBy
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, repository.ClassifyError("store document", err)
	}

	slog.Info("borrower document recorded",
		slog.String("document_id", doc.ID),
		slog.String("borrower_id", doc.BorrowerID),
		slog.Int("risk_score", doc.RiskScore),
		slog.Bool("missing_exif_data", doc.MissingExifData),
	)

	return doc, nil
}

// ListForUser はuserIDの借り手レコードに紐づく書類一覧を返す。
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*model.BorrowerDocument, error) {
	borrower, err := s.borrowers.FindByUserID(ctx, userID)
	if err != nil {
		return nil, model.NewBackendError("load borrower", err)
	}
	if borrower == nil {
		return nil, model.NewBorrowerNotFoundError()
	}

	docs, err := s.documents.ListByBorrowerID(ctx, borrower.ID)
	if err != nil {
		return nil, model.NewBackendError("list documents", err)
	}
	return docs, nil
}
