package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/lendbridge/internal/document"
	"github.com/hitoshi/lendbridge/internal/middleware"
	"github.com/hitoshi/lendbridge/internal/model"
)

// アップロード結果のラベル
const (
	uploadResultAccepted = "accepted"
	uploadResultRejected = "rejected"
	uploadResultFailed   = "failed"
)

// DocumentServiceInterface は書類ハンドラーが必要とするサービスインターフェース。
type DocumentServiceInterface interface {
	// Upload は書類メタデータを検証して登録する。uploadedByは匿名の場合空文字。
	Upload(ctx context.Context, req document.UploadRequest, uploadedBy string) (*model.BorrowerDocument, error)
	// ListForUser はユーザーの借り手レコードに紐づく書類一覧を返す。
	ListForUser(ctx context.Context, userID string) ([]*model.BorrowerDocument, error)
}

// DocumentUploadRecorder は書類アップロードの結果を記録する。
type DocumentUploadRecorder interface {
	RecordDocumentUpload(result string, missingExif bool)
}

// DocumentHandler は借り手書類のHTTPハンドラー。
type DocumentHandler struct {
	service DocumentServiceInterface
	uploads DocumentUploadRecorder
	errs    errorResponder
}

// NewDocumentHandler はDocumentHandlerを生成する。
// uploadsがnilの場合はアップロード結果を記録しない。
func NewDocumentHandler(service DocumentServiceInterface, uploads DocumentUploadRecorder, failures BackendFailureRecorder) *DocumentHandler {
	return &DocumentHandler{
		service: service,
		uploads: uploads,
		errs:    errorResponder{failures: failures},
	}
}

// Upload は書類メタデータを登録する。
// ファイル本体はクライアントがストレージへ直接アップロード済みで、ここではパスを受け取る。
// POST /api/documents
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req document.UploadRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		h.record(uploadResultRejected, false)
		h.errs.handle(w, r, "upload document", err)
		return
	}

	// セッションは任意。匿名の場合はuploaded_byを空にする
	uploadedBy, _ := middleware.UserIDFromContext(r.Context())

	doc, err := h.service.Upload(r.Context(), req, uploadedBy)
	if err != nil {
		if model.IsKind(err, model.KindBackendFailure) {
			h.record(uploadResultFailed, false)
		} else {
			h.record(uploadResultRejected, false)
		}
		h.errs.handle(w, r, "upload document", err)
		return
	}

	h.record(uploadResultAccepted, doc.MissingExifData)
	writeJSON(w, http.StatusOK, map[string]any{"data": doc})
}

// ListMine はログインユーザーの書類一覧を返す。
// GET /api/borrowers/me/documents
func (h *DocumentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	docs, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		h.errs.handle(w, r, "list documents", err)
		return
	}
	if docs == nil {
		docs = []*model.BorrowerDocument{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": docs})
}

func (h *DocumentHandler) record(result string, missingExif bool) {
	if h.uploads != nil {
		h.uploads.RecordDocumentUpload(result, missingExif)
	}
}
