package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// OrphanDeleter は存在しないコースを参照する動画の削除を抽象化するインターフェース。
type OrphanDeleter interface {
	DeleteOrphans(ctx context.Context) (int64, error)
}

// OrphanVideoJob はコース削除後に残った動画を削除するジョブ。
// 冪等: 削除対象がない場合でもエラーにならない。
type OrphanVideoJob struct {
	videos OrphanDeleter
	logger *slog.Logger
}

// NewOrphanVideoJob はOrphanVideoJobを生成する。
func NewOrphanVideoJob(videos OrphanDeleter, logger *slog.Logger) *OrphanVideoJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrphanVideoJob{videos: videos, logger: logger}
}

// Run は孤立した動画を削除する。
func (j *OrphanVideoJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.videos.DeleteOrphans(ctx)
	if err != nil {
		j.logger.Error("孤立動画の削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("孤立動画の削除に失敗: %w", err)
	}

	j.logger.Info("孤立動画の掃除が完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}
