package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/lendbridge/internal/model"
)

// ErrInvalidGrant は認証サービスがトークンやOTPを拒否したことを表す。
// 期限切れ・失効済みのリフレッシュトークンなど、再ログインが必要なケース。
var ErrInvalidGrant = errors.New("auth service rejected the grant")

// GoTrueConfig は認証サービスクライアントの設定。
type GoTrueConfig struct {
	BaseURL        string // 例: https://project.backend.example.com （/auth/v1 は自動付与）
	AnonKey        string // apikeyヘッダーに付与する公開キー
	ServiceRoleKey string // 管理APIで使用する
	HTTPClient     *http.Client
}

// GoTrueClient はホスト側認証サービスのREST APIクライアント。
type GoTrueClient struct {
	baseURL        string
	anonKey        string
	serviceRoleKey string
	httpClient     *http.Client
}

// NewGoTrueClient はGoTrueClientを生成する。
func NewGoTrueClient(config GoTrueConfig) *GoTrueClient {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoTrueClient{
		baseURL:        strings.TrimRight(config.BaseURL, "/") + "/auth/v1",
		anonKey:        config.AnonKey,
		serviceRoleKey: config.ServiceRoleKey,
		httpClient:     httpClient,
	}
}

// tokenResponse はトークンエンドポイントのレスポンス。
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
}

// AdminUser は管理APIが返す認証ユーザー情報。
type AdminUser struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Role             string     `json:"role"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	LastSignInAt     *time.Time `json:"last_sign_in_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

// RefreshSession はリフレッシュトークンで新しいトークンペアを取得する。
// リフレッシュトークンはローテーションされるため、呼び出し側は両方を保存し直す必要がある。
func (c *GoTrueClient) RefreshSession(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	body := map[string]string{"refresh_token": refreshToken}
	return c.postToken(ctx, c.baseURL+"/token?grant_type=refresh_token", body)
}

// VerifyOTP はメールリンクのtoken_hashを検証し、セッションを発行する。
// otpTypeは "signup", "magiclink", "recovery", "invite", "email" のいずれか。
func (c *GoTrueClient) VerifyOTP(ctx context.Context, tokenHash, otpType string) (*model.TokenPair, error) {
	body := map[string]string{"token_hash": tokenHash, "type": otpType}
	return c.postToken(ctx, c.baseURL+"/verify", body)
}

// Logout はアクセストークンに紐づくセッションを認証サービス側で失効させる。
// 既に失効済み（401/404）の場合は成功として扱う。
func (c *GoTrueClient) Logout(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/logout", nil)
	if err != nil {
		return fmt.Errorf("failed to create logout request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("logout failed with status %d", resp.StatusCode)
	}
}

// GetUserByID は管理APIで認証ユーザーを取得する。見つからない場合はnilを返す。
// service-roleキーが必要。
func (c *GoTrueClient) GetUserByID(ctx context.Context, userID string) (*AdminUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/admin/users/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin user request: %w", err)
	}
	req.Header.Set("apikey", c.serviceRoleKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceRoleKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("admin user request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read admin user response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("admin user fetch failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var user AdminUser
	if err := json.Unmarshal(respBody, &user); err != nil {
		return nil, fmt.Errorf("failed to parse admin user response: %w", err)
	}
	return &user, nil
}

// postToken はトークンを発行するエンドポイントにJSONをPOSTする。
func (c *GoTrueClient) postToken(ctx context.Context, endpoint string, payload any) (*model.TokenPair, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrInvalidGrant, resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" || tokenResp.RefreshToken == "" {
		return nil, fmt.Errorf("empty token in response")
	}

	expiresAt := time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	if tokenResp.ExpiresAt > 0 {
		expiresAt = time.Unix(tokenResp.ExpiresAt, 0)
	}

	return &model.TokenPair{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresIn:    tokenResp.ExpiresIn,
		ExpiresAt:    expiresAt,
	}, nil
}
