package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "auth:revoked:"

// 期限不明または期限切れのトークンを失効させる場合の保持期間
const fallbackRevocationTTL = time.Hour

// RedisRevocationStore はログアウト済みセッションIDをTTL付きで保持する。
// TTLはアクセストークンの有効期限に合わせるため、期限切れ後は自然に消える。
type RedisRevocationStore struct {
	client redis.Cmdable
}

// NewRedisRevocationStore はRedisRevocationStoreを生成する。
func NewRedisRevocationStore(client redis.Cmdable) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

// MarkRevoked はセッションIDを失効済みとして記録する。
func (s *RedisRevocationStore) MarkRevoked(ctx context.Context, sessionID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = fallbackRevocationTTL
	}
	if err := s.client.Set(ctx, revokedKeyPrefix+sessionID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark session revoked: %w", err)
	}
	return nil
}

// IsRevoked はセッションIDが失効済みかを返す。
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKeyPrefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session revocation: %w", err)
	}
	return n > 0, nil
}

// NoopRevocationStore はREDIS_URL未設定時に使用する失効ストア。
// 失効記録は行わず、常に未失効を返す。ログアウトは認証サービス側の失効のみとなる。
type NoopRevocationStore struct{}

// MarkRevoked は何もしない。
func (NoopRevocationStore) MarkRevoked(context.Context, string, time.Time) error { return nil }

// IsRevoked は常にfalseを返す。
func (NoopRevocationStore) IsRevoked(context.Context, string) (bool, error) { return false, nil }
