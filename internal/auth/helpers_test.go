package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/lendbridge/internal/model"
)

const testSecret = "test-jwt-secret-32bytes-long!!!!"

// signTestToken はテスト用のアクセストークンを発行する。
func signTestToken(t *testing.T, secret, sub, sessionID string, expiresAt time.Time) string {
	t.Helper()
	claims := AccessClaims{
		Email:     sub + "@example.com",
		Role:      "authenticated",
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Audience:  jwt.ClaimStrings{accessTokenAudience},
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

// --- モック定義 ---

type mockSessionAPI struct {
	refreshFn   func(ctx context.Context, refreshToken string) (*model.TokenPair, error)
	verifyOTPFn func(ctx context.Context, tokenHash, otpType string) (*model.TokenPair, error)
	logoutFn    func(ctx context.Context, accessToken string) error
}

func (m *mockSessionAPI) RefreshSession(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, refreshToken)
	}
	return nil, ErrInvalidGrant
}

func (m *mockSessionAPI) VerifyOTP(ctx context.Context, tokenHash, otpType string) (*model.TokenPair, error) {
	if m.verifyOTPFn != nil {
		return m.verifyOTPFn(ctx, tokenHash, otpType)
	}
	return nil, ErrInvalidGrant
}

func (m *mockSessionAPI) Logout(ctx context.Context, accessToken string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, accessToken)
	}
	return nil
}

type mockRevocationStore struct {
	revoked       map[string]time.Time
	isRevokedErr  error
	markRevokedFn func(ctx context.Context, sessionID string, expiresAt time.Time) error
}

func newMockRevocationStore() *mockRevocationStore {
	return &mockRevocationStore{revoked: map[string]time.Time{}}
}

func (m *mockRevocationStore) MarkRevoked(ctx context.Context, sessionID string, expiresAt time.Time) error {
	if m.markRevokedFn != nil {
		return m.markRevokedFn(ctx, sessionID, expiresAt)
	}
	m.revoked[sessionID] = expiresAt
	return nil
}

func (m *mockRevocationStore) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	if m.isRevokedErr != nil {
		return false, m.isRevokedErr
	}
	_, ok := m.revoked[sessionID]
	return ok, nil
}

// --- compile-time interface checks ---
var _ SessionAPI = (*mockSessionAPI)(nil)
var _ SessionAPI = (*GoTrueClient)(nil)
var _ RevocationStore = (*mockRevocationStore)(nil)
var _ TokenRefresher = (*GoTrueClient)(nil)
