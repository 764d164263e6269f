// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"encoding/json"

	"github.com/hitoshi/lendbridge/internal/model"
)

// ProfileRepository はプロフィールの参照インターフェース。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)
}

// RoleRepository はロール付与情報の参照インターフェース。
type RoleRepository interface {
	// ListRoles はユーザーが保持する全ロールを返す。
	// user_rolesテーブルとprofiles.roleの両方を参照し、重複は除く。
	// ロールが1件もない場合は空スライスを返す。
	ListRoles(ctx context.Context, userID string) ([]string, error)
}

// BorrowerRepository は借り手レコードの参照インターフェース。
type BorrowerRepository interface {
	// FindByUserID はuser_idで借り手を検索する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Borrower, error)

	// FindByID は指定IDの借り手を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Borrower, error)
}

// LenderRepository は貸し手レコードの参照インターフェース。
type LenderRepository interface {
	// FindByUserID はuser_idで貸し手を検索する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Lender, error)
}

// SubscriptionRepository は貸し手の契約情報の参照インターフェース。
type SubscriptionRepository interface {
	// FindLatestByUserID は指定ユーザー（貸し手）の最新の契約を返す。
	// 貸し手レコードまたは契約が存在しない場合はnilを返す。
	FindLatestByUserID(ctx context.Context, userID string) (*model.Subscription, error)
}

// DocumentRepository は借り手書類メタデータの永続化インターフェース。
type DocumentRepository interface {
	// Create は書類メタデータを作成する。
	Create(ctx context.Context, doc *model.BorrowerDocument) error

	// ListByBorrowerID は借り手の書類をcreated_at降順で返す。
	ListByBorrowerID(ctx context.Context, borrowerID string) ([]*model.BorrowerDocument, error)
}

// RPCArg はストアドファンクションに渡す名前付き引数。
type RPCArg struct {
	Name  string
	Value any
}

// RPCCaller はホスト側に定義されたストアドファンクションの呼び出しインターフェース。
type RPCCaller interface {
	// Call は関数fnを名前付き引数で呼び出し、結果をJSONで返す。
	Call(ctx context.Context, fn string, args ...RPCArg) (json.RawMessage, error)
}
