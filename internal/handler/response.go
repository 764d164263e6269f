// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/lendbridge/internal/middleware"
	"github.com/hitoshi/lendbridge/internal/model"
)

// リクエストボディの上限（1MB）
const maxRequestBodyBytes = 1 << 20

// BackendFailureRecorder はバックエンド障害の発生を記録する。
// metrics.Collectorが実装する。
type BackendFailureRecorder interface {
	RecordBackendFailure(operation string)
}

// errorResponder はサービス層のエラーを統一フォーマットのレスポンスに変換する。
type errorResponder struct {
	failures    BackendFailureRecorder // nilの場合は記録しない
	withDetails bool                   // 診断用ルートのみtrue
}

// handle はエラー分類からステータスコードを決定してレスポンスを書き込む。
// BackendFailureはログと障害メトリクスに記録する。
func (e errorResponder) handle(w http.ResponseWriter, r *http.Request, operation string, err error) {
	apiErr := model.AsAPIError(err)

	if apiErr.Kind == model.KindBackendFailure {
		slog.Error("backend failure",
			slog.String("operation", operation),
			slog.String("path", r.URL.Path),
			slog.String("code", apiErr.Code),
			slog.String("error", err.Error()),
		)
		if e.failures != nil {
			e.failures.RecordBackendFailure(operation)
		}
	}

	middleware.WriteAPIError(w, apiErr, e.withDetails)
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSONBody はリクエストボディをJSONとしてvに読み込む。
// 解析に失敗した場合はInvalidInputのAPIErrorを返す。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.NewInvalidRequestError()
	}
	return nil
}

// requireUserID はコンテキストからユーザーIDを取り出す。
// セッションミドルウェアの外で呼ばれた場合は401を書き込みfalseを返す。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthenticatedError(), false)
		return "", false
	}
	return userID, true
}
