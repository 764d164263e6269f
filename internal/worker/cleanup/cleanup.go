// Package cleanup は借り手招待の定期クリーンアップジョブを提供する。
// 期限切れのpending招待をexpiredに更新し、保持期間を過ぎたexpired招待を削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// クリーンアップ処理の種別（メトリクスのラベル）
const (
	ActionExpired = "expired"
	ActionDeleted = "deleted"
)

// DefaultInterval はStartに0以下の間隔が渡された場合に使う実行間隔。
const DefaultInterval = 24 * time.Hour

const (
	expirePendingInvitesQuery = `UPDATE borrower_invites SET status = 'expired'
		WHERE status = 'pending' AND expires_at < now()`

	deleteExpiredInvitesQuery = `DELETE FROM borrower_invites
		WHERE status = 'expired' AND expires_at < now() - $1::interval`
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Recorder はクリーンアップ件数を記録する。metrics.Collectorが実装する。
type Recorder interface {
	RecordInvitesCleaned(action string, count int64)
}

// InviteCleanupJob は借り手招待のクリーンアップジョブ。
// 何度実行しても結果が変わらない。
type InviteCleanupJob struct {
	db            Executor
	logger        *slog.Logger
	recorder      Recorder
	RetentionDays int // expired招待の保持日数（デフォルト: 30）
}

// NewInviteCleanupJob は新しいInviteCleanupJobを生成する。
// recorderはnil可。
func NewInviteCleanupJob(db Executor, logger *slog.Logger, recorder Recorder) *InviteCleanupJob {
	return &InviteCleanupJob{
		db:            db,
		logger:        logger,
		recorder:      recorder,
		RetentionDays: 30,
	}
}

// Run は期限切れ招待の状態更新と古い招待の削除を順に実行する。
func (j *InviteCleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	expired, err := j.exec(ctx, "expire pending invites", expirePendingInvitesQuery)
	if err != nil {
		return err
	}

	interval := fmt.Sprintf("%d days", j.RetentionDays)
	deleted, err := j.exec(ctx, "delete expired invites", deleteExpiredInvitesQuery, interval)
	if err != nil {
		return err
	}

	j.record(ActionExpired, expired)
	j.record(ActionDeleted, deleted)

	j.logger.Info("invite cleanup completed",
		slog.Int64("expired_count", expired),
		slog.Int64("deleted_count", deleted),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// Start はintervalごとにRunを実行する。起動直後に1回実行する。
// コンテキストがキャンセルされるまでブロックする。
func (j *InviteCleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("invite cleanup scheduler started",
		slog.Duration("interval", interval),
		slog.Int("retention_days", j.RetentionDays),
	)

	j.runLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("invite cleanup scheduler stopped")
			return
		case <-ticker.C:
			j.runLogged(ctx)
		}
	}
}

func (j *InviteCleanupJob) runLogged(ctx context.Context) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("invite cleanup failed", slog.String("error", err.Error()))
	}
}

func (j *InviteCleanupJob) exec(ctx context.Context, op, query string, args ...interface{}) (int64, error) {
	result, err := j.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to %s: %w", op, err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows (%s): %w", op, err)
	}
	return count, nil
}

func (j *InviteCleanupJob) record(action string, count int64) {
	if j.recorder != nil {
		j.recorder.RecordInvitesCleaned(action, count)
	}
}
