package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/lendbridge/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// Detailsは診断用ルートでのみ設定される。
type ErrorResponseBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// StatusForKind はエラー分類をHTTPステータスコードに変換する。
// 未知の分類は500として扱う。
func StatusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.KindInvalidInput:
		return http.StatusBadRequest
	case model.KindUnauthenticated:
		return http.StatusUnauthorized
	case model.KindUnauthorized:
		return http.StatusForbidden
	case model.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// Detailsはレスポンスに含めない。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeErrorBody(w, statusCode, ErrorResponseBody{
		Error: apiErr.Message,
		Code:  apiErr.Code,
	})
}

// WriteAPIError はエラー分類からステータスコードを決定して書き込む。
// withDetailsがtrueの場合はバックエンドの生エラーも返す（診断用ルートのみ）。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError, withDetails bool) {
	body := ErrorResponseBody{
		Error: apiErr.Message,
		Code:  apiErr.Code,
	}
	if withDetails {
		body.Details = apiErr.Details
	}
	writeErrorBody(w, StatusForKind(apiErr.Kind), body)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、クライアントには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Kind:    model.KindBackendFailure,
		Code:    model.ErrCodeInternal,
		Message: "Internal server error",
	})
}

func writeErrorBody(w http.ResponseWriter, statusCode int, body ErrorResponseBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
