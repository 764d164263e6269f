// Package auth はホスト側認証サービスとのセッション連携を提供する。
// アクセストークンの検証・リフレッシュ、メールリンクの検証、ログアウトを扱う。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/lendbridge/internal/model"
)

// SessionAPI は認証サービスのセッションAPIのインターフェース。
type SessionAPI interface {
	// RefreshSession はリフレッシュトークンで新しいトークンペアを取得する。
	RefreshSession(ctx context.Context, refreshToken string) (*model.TokenPair, error)
	// VerifyOTP はメールリンクのtoken_hashを検証しセッションを発行する。
	VerifyOTP(ctx context.Context, tokenHash, otpType string) (*model.TokenPair, error)
	// Logout は認証サービス側でセッションを失効させる。
	Logout(ctx context.Context, accessToken string) error
}

// RevocationStore はログアウト済みセッションIDの保存先。
type RevocationStore interface {
	// MarkRevoked はセッションIDを失効済みとして記録する。expiresAtまで保持すればよい。
	MarkRevoked(ctx context.Context, sessionID string, expiresAt time.Time) error
	// IsRevoked はセッションIDが失効済みかを返す。
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// 許可するOTP種別
var allowedOTPTypes = map[string]bool{
	"signup":       true,
	"magiclink":    true,
	"recovery":     true,
	"invite":       true,
	"email":        true,
	"email_change": true,
}

// Service はセッション発行・破棄に関するビジネスロジックを提供する。
type Service struct {
	api         SessionAPI
	verifier    *TokenVerifier
	revocations RevocationStore
}

// NewService はServiceを生成する。
func NewService(api SessionAPI, verifier *TokenVerifier, revocations RevocationStore) *Service {
	return &Service{
		api:         api,
		verifier:    verifier,
		revocations: revocations,
	}
}

// ExchangeTokenHash はメールリンクのtoken_hashをセッションに交換する。
func (s *Service) ExchangeTokenHash(ctx context.Context, tokenHash, otpType string) (*model.TokenPair, error) {
	if tokenHash == "" {
		return nil, model.NewMissingFieldsError([]string{"token_hash"})
	}
	if otpType == "" {
		otpType = "email"
	}
	if !allowedOTPTypes[otpType] {
		return nil, &model.APIError{
			Kind:    model.KindInvalidInput,
			Code:    model.ErrCodeInvalidRequest,
			Message: fmt.Sprintf("Unsupported verification type: %s", otpType),
		}
	}

	pair, err := s.api.VerifyOTP(ctx, tokenHash, otpType)
	if err != nil {
		if errors.Is(err, ErrInvalidGrant) {
			return nil, model.NewUnauthenticatedError()
		}
		return nil, model.NewBackendError("verify email link", err)
	}
	return pair, nil
}

// AcceptTokens はクライアント側ブリッジから受け取ったトークンペアを検証する。
// アクセストークンが期限切れの場合はリフレッシュを試みる。
func (s *Service) AcceptTokens(ctx context.Context, accessToken, refreshToken string) (*model.TokenPair, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, model.NewMissingFieldsError([]string{"access_token", "refresh_token"})
	}

	claims, err := s.verifier.Verify(accessToken)
	switch {
	case err == nil:
		return &model.TokenPair{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresIn:    int(time.Until(claims.ExpiresAt.Time).Seconds()),
			ExpiresAt:    claims.ExpiresAt.Time,
		}, nil
	case errors.Is(err, ErrTokenExpired):
		pair, refreshErr := s.api.RefreshSession(ctx, refreshToken)
		if refreshErr != nil {
			if errors.Is(refreshErr, ErrInvalidGrant) {
				return nil, model.NewUnauthenticatedError()
			}
			return nil, model.NewBackendError("refresh session", refreshErr)
		}
		return pair, nil
	default:
		return nil, model.NewUnauthenticatedError()
	}
}

// Logout はセッションを破棄する。
// トークンのsession_idを失効ストアに記録したうえで認証サービス側も失効させる。
// 認証サービス呼び出しの失敗はログのみとし、失効ストアへの記録を優先する。
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}

	claims, err := s.verifier.ParseUnverifiedExpiry(accessToken)
	if err != nil {
		// 署名不正なトークンは失効対象にしない
		return nil
	}

	if claims.SessionID != "" {
		expiresAt := time.Now().Add(time.Hour)
		if claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		if err := s.revocations.MarkRevoked(ctx, claims.SessionID, expiresAt); err != nil {
			return fmt.Errorf("failed to mark session revoked: %w", err)
		}
	}

	if err := s.api.Logout(ctx, accessToken); err != nil {
		slog.Warn("auth service logout failed",
			slog.String("user_id", claims.Subject),
			slog.String("error", err.Error()),
		)
	}

	slog.Info("user logged out",
		slog.String("user_id", claims.Subject),
		slog.String("session_id", claims.SessionID),
	)
	return nil
}
