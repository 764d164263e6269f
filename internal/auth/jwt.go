package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 認証サービスが発行するアクセストークンのaudience。
const accessTokenAudience = "authenticated"

var (
	// ErrTokenExpired はアクセストークンの有効期限切れを表す。リフレッシュで回復可能。
	ErrTokenExpired = errors.New("access token expired")
	// ErrTokenInvalid は署名不正・形式不正など回復不能なトークンを表す。
	ErrTokenInvalid = errors.New("access token invalid")
)

// AccessClaims はアクセストークンから取り出したクレーム。
type AccessClaims struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// TokenVerifier はHS256で署名されたアクセストークンを検証する。
type TokenVerifier struct {
	secret []byte
	leeway time.Duration
}

// NewTokenVerifier はプロジェクトのJWTシークレットでTokenVerifierを生成する。
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), leeway: 10 * time.Second}
}

// Verify はトークンの署名・exp・sub・audを検証する。
// 期限切れの場合はErrTokenExpired、それ以外の不正はErrTokenInvalidをラップして返す。
func (v *TokenVerifier) Verify(raw string) (*AccessClaims, error) {
	return v.parse(raw, true)
}

// ParseUnverifiedExpiry は署名のみ検証し、期限切れでもクレームを返す。
// ログアウト時に期限切れトークンのセッションIDを失効させるために使う。
func (v *TokenVerifier) ParseUnverifiedExpiry(raw string) (*AccessClaims, error) {
	return v.parse(raw, false)
}

func (v *TokenVerifier) parse(raw string, validateClaims bool) (*AccessClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
	}
	if validateClaims {
		opts = append(opts, jwt.WithAudience(accessTokenAudience), jwt.WithExpirationRequired())
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	parsed, err := jwt.ParseWithClaims(raw, &AccessClaims{}, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrTokenInvalid)
	}

	return claims, nil
}
