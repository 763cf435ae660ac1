// Package reconcile はpendingのまま残った決済記録の確定と、
// 削除済みコースに残った動画の掃除を行うバックグラウンドジョブを提供する。
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/forky/internal/metrics"
	"github.com/hitoshi/forky/internal/model"
)

// PaymentResolver は照合に必要な決済記録の操作。
// repository.PaymentRepositoryの部分集合。
type PaymentResolver interface {
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]string, error)
	ResolvePending(ctx context.Context, id string) (model.PaymentStatus, error)
}

// PaymentJob はpendingの決済記録を受給権の状態に合わせて確定するジョブ。
// 購入処理が確定の書き込みに失敗した記録が対象になる。
type PaymentJob struct {
	payments       PaymentResolver
	metrics        metrics.MetricsCollector
	logger         *slog.Logger
	now            func() time.Time
	PendingAge     time.Duration // これより古いpending記録だけを対象にする（デフォルト: 10分）
	BatchSize      int           // 1回の実行で扱う最大件数（デフォルト: 100）
	MaxConcurrency int           // 並列に確定する最大件数（デフォルト: 4）
}

// NewPaymentJob はPaymentJobを生成する。metricsはnilでもよい。
func NewPaymentJob(payments PaymentResolver, mc metrics.MetricsCollector, logger *slog.Logger) *PaymentJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentJob{
		payments:       payments,
		metrics:        mc,
		logger:         logger,
		now:            time.Now,
		PendingAge:     10 * time.Minute,
		BatchSize:      100,
		MaxConcurrency: 4,
	}
}

// Run は対象の記録を1回分確定する。
// 個々の記録の失敗はログに残して次回に回し、一覧取得の失敗だけをエラーとして返す。
func (j *PaymentJob) Run(ctx context.Context) error {
	start := j.now()

	ids, err := j.payments.ListStalePending(ctx, start.Add(-j.PendingAge), j.BatchSize)
	if err != nil {
		return fmt.Errorf("pending決済記録の取得に失敗: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	results := make([]model.PaymentStatus, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.MaxConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			status, err := j.payments.ResolvePending(gctx, id)
			if err != nil {
				j.logger.Error("決済記録の確定に失敗しました",
					slog.String("record_id", id),
					slog.String("error", err.Error()),
				)
				return nil
			}
			results[i] = status
			return nil
		})
	}
	_ = g.Wait()

	counts := make(map[model.PaymentStatus]int)
	for _, status := range results {
		if status == model.PaymentStatusCommitted || status == model.PaymentStatusRejected {
			counts[status]++
		}
	}
	if j.metrics != nil {
		for status, n := range counts {
			j.metrics.RecordReconciled(string(status), n)
		}
	}

	j.logger.Info("決済照合ジョブが完了しました",
		slog.Int("pending_count", len(ids)),
		slog.Int("committed_count", counts[model.PaymentStatusCommitted]),
		slog.Int("rejected_count", counts[model.PaymentStatusRejected]),
		slog.Float64("duration_ms", float64(j.now().Sub(start).Milliseconds())),
	)
	return nil
}
