// Package model はドメインモデルを定義する。
package model

import "time"

// ロール名
const (
	RoleBorrower = "borrower"
	RoleLender   = "lender"
	RoleAdmin    = "admin"
)

// Identity はリクエストに紐づく認証済みプリンシパルを表す。
// 外部の認証サービスが発行したアクセストークンから毎リクエスト解決される。
type Identity struct {
	ID        string
	Email     string
	Role      string // トークンのroleクレーム（通常は"authenticated"）
	SessionID string // 認証サービス側のセッションID。失効管理に使用する
	ExpiresAt time.Time
}

// Profile はIdentityごとに1行存在するプロフィールを表す。
type Profile struct {
	ID               string     `json:"id"`
	Role             string     `json:"role"`
	FullName         string     `json:"full_name"`
	Email            string     `json:"email"`
	AvatarURL        *string    `json:"avatar_url"`
	StripeCustomerID *string    `json:"stripe_customer_id"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at"`
}

// RoleAssignment はIdentityに付与されたロールを表す。
// 1つのIdentityは0個以上のロールを持つ。
type RoleAssignment struct {
	UserID string
	Role   string
}

// TokenPair は認証サービスが発行したトークンの組を表す。
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // 秒
	ExpiresAt    time.Time
}
