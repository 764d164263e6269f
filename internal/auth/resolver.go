package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/lendbridge/internal/model"
)

// Credentials はリクエストから取り出した認証情報。
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Resolution はセッション解決の結果。
// Identityがnilの場合は未認証を表す。
// Refreshedが非nilの場合、トークンがローテーションされたのでレスポンスに書き戻す必要がある。
type Resolution struct {
	Identity  *model.Identity
	Refreshed *model.TokenPair
}

// Authenticated はIdentityが解決できたかを返す。
func (r *Resolution) Authenticated() bool {
	return r != nil && r.Identity != nil
}

// TokenRefresher はリフレッシュトークンの交換を行う。
type TokenRefresher interface {
	RefreshSession(ctx context.Context, refreshToken string) (*model.TokenPair, error)
}

// RevocationChecker はセッションIDの失効状態を確認する。
type RevocationChecker interface {
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// Resolver はリクエストの認証情報からIdentityを解決する。
type Resolver struct {
	verifier    *TokenVerifier
	refresher   TokenRefresher
	revocations RevocationChecker
}

// NewResolver はResolverを生成する。
func NewResolver(verifier *TokenVerifier, refresher TokenRefresher, revocations RevocationChecker) *Resolver {
	return &Resolver{
		verifier:    verifier,
		refresher:   refresher,
		revocations: revocations,
	}
}

// Resolve は認証情報からIdentityを解決する。
// 未認証（トークンなし・不正・期限切れでリフレッシュ失敗・失効済み）はエラーではなく
// Identity=nilとして返す。エラーは失効ストア障害などインフラ起因の場合のみ。
func (r *Resolver) Resolve(ctx context.Context, creds Credentials) (*Resolution, error) {
	if creds.AccessToken != "" {
		claims, err := r.verifier.Verify(creds.AccessToken)
		if err == nil {
			identity, err := r.identityFromClaims(ctx, claims)
			if err != nil {
				return nil, err
			}
			return &Resolution{Identity: identity}, nil
		}
		if !errors.Is(err, ErrTokenExpired) {
			return &Resolution{}, nil
		}
	}

	if creds.RefreshToken == "" || r.refresher == nil {
		return &Resolution{}, nil
	}

	pair, err := r.refresher.RefreshSession(ctx, creds.RefreshToken)
	if err != nil {
		if !errors.Is(err, ErrInvalidGrant) {
			slog.Warn("session refresh failed", slog.String("error", err.Error()))
		}
		return &Resolution{}, nil
	}

	claims, err := r.verifier.Verify(pair.AccessToken)
	if err != nil {
		slog.Warn("refreshed access token failed verification", slog.String("error", err.Error()))
		return &Resolution{}, nil
	}

	identity, err := r.identityFromClaims(ctx, claims)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return &Resolution{}, nil
	}

	return &Resolution{Identity: identity, Refreshed: pair}, nil
}

// identityFromClaims は失効確認のうえIdentityを組み立てる。失効済みの場合はnilを返す。
func (r *Resolver) identityFromClaims(ctx context.Context, claims *AccessClaims) (*model.Identity, error) {
	if claims.SessionID != "" && r.revocations != nil {
		revoked, err := r.revocations.IsRevoked(ctx, claims.SessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to check session revocation: %w", err)
		}
		if revoked {
			return nil, nil
		}
	}

	identity := &model.Identity{
		ID:        claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: claims.SessionID,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}
