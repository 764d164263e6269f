// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrorKind はAPIエラーの分類を表す。
// ハンドラー境界でHTTPステータスコードに変換される。
type ErrorKind string

const (
	// KindUnauthenticated は解決可能なIdentityが存在しないことを表す。
	KindUnauthenticated ErrorKind = "unauthenticated"
	// KindUnauthorized はIdentityが必要なロールを持たないことを表す。
	KindUnauthorized ErrorKind = "unauthorized"
	// KindInvalidInput はリクエストフィールドの欠落・不正を表す。
	KindInvalidInput ErrorKind = "invalid_input"
	// KindNotFound は期待する関連レコードが存在しないことを表す。
	KindNotFound ErrorKind = "not_found"
	// KindBackendFailure は外部ストアがエラーを返したことを表す。
	KindBackendFailure ErrorKind = "backend_failure"
)

// APIError は統一エラーフォーマットを表す。
// Detailsは診断用ルートでのみレスポンスに含める。
type APIError struct {
	Kind    ErrorKind
	Code    string // エラーコード
	Message string // クライアント向けメッセージ
	Details string // バックエンドの生エラー（ログ・診断用）
	Err     error  // ラップ対象
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap はラップされたエラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated     = "UNAUTHENTICATED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeMissingFields       = "MISSING_FIELDS"
	ErrCodeInvalidEmail        = "INVALID_EMAIL"
	ErrCodeInvalidUserID       = "INVALID_USER_ID"
	ErrCodeProfileNotFound     = "PROFILE_NOT_FOUND"
	ErrCodeBorrowerNotFound    = "BORROWER_NOT_FOUND"
	ErrCodeLenderNotFound      = "LENDER_NOT_FOUND"
	ErrCodeBillingNotFound     = "BILLING_ACCOUNT_NOT_FOUND"
	ErrCodeRecordNotFound      = "RECORD_NOT_FOUND"
	ErrCodeConstraintViolation = "CONSTRAINT_VIOLATION"
	ErrCodeBackendFailure      = "BACKEND_FAILURE"
	ErrCodeBillingUnavailable  = "BILLING_UNAVAILABLE"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewUnauthenticatedError は未認証エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Kind:    KindUnauthenticated,
		Code:    ErrCodeUnauthenticated,
		Message: "Authentication required",
	}
}

// NewForbiddenError はロール不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Kind:    KindUnauthorized,
		Code:    ErrCodeForbidden,
		Message: "You do not have permission to perform this action",
	}
}

// NewInvalidRequestError はリクエストボディ解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Kind:    KindInvalidInput,
		Code:    ErrCodeInvalidRequest,
		Message: "Request body must be valid JSON",
	}
}

// NewMissingFieldsError は必須フィールド欠落エラーを生成する。
func NewMissingFieldsError(fields []string) *APIError {
	return &APIError{
		Kind:    KindInvalidInput,
		Code:    ErrCodeMissingFields,
		Message: fmt.Sprintf("Missing required fields: %v", fields),
	}
}

// NewInvalidEmailError は不正なメールアドレスエラーを生成する。
func NewInvalidEmailError(email string) *APIError {
	return &APIError{
		Kind:    KindInvalidInput,
		Code:    ErrCodeInvalidEmail,
		Message: fmt.Sprintf("Invalid email address: %s", email),
	}
}

// NewInvalidUserIDError はuser_idパラメータが不正な場合のエラーを生成する。
func NewInvalidUserIDError() *APIError {
	return &APIError{
		Kind:    KindInvalidInput,
		Code:    ErrCodeInvalidUserID,
		Message: "user_id must be a valid UUID",
	}
}

// NewProfileNotFoundError はプロフィール未検出エラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Kind:    KindNotFound,
		Code:    ErrCodeProfileNotFound,
		Message: "Profile not found",
	}
}

// NewBorrowerNotFoundError は借り手レコード未検出エラーを生成する。
func NewBorrowerNotFoundError() *APIError {
	return &APIError{
		Kind:    KindNotFound,
		Code:    ErrCodeBorrowerNotFound,
		Message: "Borrower record not found",
	}
}

// NewLenderNotFoundError は貸し手レコード未検出エラーを生成する。
func NewLenderNotFoundError() *APIError {
	return &APIError{
		Kind:    KindNotFound,
		Code:    ErrCodeLenderNotFound,
		Message: "Lender record not found",
	}
}

// NewBillingNotFoundError は課金アカウント未登録エラーを生成する。
func NewBillingNotFoundError() *APIError {
	return &APIError{
		Kind:    KindNotFound,
		Code:    ErrCodeBillingNotFound,
		Message: "No billing account found for this user",
	}
}

// NewBillingUnavailableError は課金プロバイダーが未設定の場合のエラーを生成する。
func NewBillingUnavailableError() *APIError {
	return &APIError{
		Kind:    KindBackendFailure,
		Code:    ErrCodeBillingUnavailable,
		Message: "Billing is not configured",
	}
}

// NewBackendError は外部ストアのエラーをラップする。
// 生のエラーはDetailsに保持し、通常のレスポンスには含めない。
func NewBackendError(op string, err error) *APIError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &APIError{
		Kind:    KindBackendFailure,
		Code:    ErrCodeBackendFailure,
		Message: fmt.Sprintf("Failed to %s", op),
		Details: details,
		Err:     err,
	}
}

// AsAPIError はerrからAPIErrorを取り出す。
// APIErrorでない場合はBackendFailureとして包む。
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &APIError{
		Kind:    KindBackendFailure,
		Code:    ErrCodeInternal,
		Message: "Internal server error",
		Details: err.Error(),
		Err:     err,
	}
}

// IsKind はerrが指定された分類のAPIErrorかどうかを判定する。
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
