package repository

import (
	"errors"

	"github.com/lib/pq"

	"github.com/hitoshi/lendbridge/internal/model"
)

// PostgreSQLのSQLSTATE。ホスト側RPCが返すものを中心に分類する。
const (
	pqCodeNoDataFound         pq.ErrorCode = "P0002"
	pqCodeUniqueViolation     pq.ErrorCode = "23505"
	pqCodeForeignKeyViolation pq.ErrorCode = "23503"
	pqCodeInvalidText         pq.ErrorCode = "22P02"
	pqCodeCheckViolation      pq.ErrorCode = "23514"
	pqCodeInsufficientPriv    pq.ErrorCode = "42501"
)

// クライアント向けの固定メッセージ。PostgreSQLの生メッセージはDetailsにのみ残す。
const (
	msgRecordNotFound      = "Requested record not found"
	msgConstraintViolation = "Request conflicts with existing data"
)

// ClassifyError はストアのエラーをAPIErrorに分類する。
// 既にAPIErrorの場合はそのまま返す。分類できないものはBackendFailureとなる。
func ClassifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return model.NewBackendError(op, err)
	}

	switch pqErr.Code {
	case pqCodeNoDataFound:
		return &model.APIError{
			Kind:    model.KindNotFound,
			Code:    model.ErrCodeRecordNotFound,
			Message: msgRecordNotFound,
			Details: pqErr.Error(),
			Err:     err,
		}
	case pqCodeUniqueViolation, pqCodeForeignKeyViolation, pqCodeInvalidText, pqCodeCheckViolation:
		return &model.APIError{
			Kind:    model.KindInvalidInput,
			Code:    model.ErrCodeConstraintViolation,
			Message: msgConstraintViolation,
			Details: pqErr.Error(),
			Err:     err,
		}
	case pqCodeInsufficientPriv:
		forbidden := model.NewForbiddenError()
		forbidden.Details = pqErr.Error()
		forbidden.Err = err
		return forbidden
	default:
		return model.NewBackendError(op, err)
	}
}
