package reconcile

import (
	"context"
	"log/slog"
	"time"
)

// Job は定期実行するジョブのインターフェース。
type Job interface {
	Run(ctx context.Context) error
}

// Scheduler は登録したジョブを一定間隔で順に実行する。
type Scheduler struct {
	jobs   map[string]Job
	order  []string
	logger *slog.Logger
}

// NewScheduler はSchedulerを生成する。
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{jobs: make(map[string]Job), logger: logger}
}

// Add はジョブを登録する。登録順に実行される。
func (s *Scheduler) Add(name string, job Job) {
	if _, ok := s.jobs[name]; !ok {
		s.order = append(s.order, name)
	}
	s.jobs[name] = job
}

// Start はintervalごとに全ジョブを実行する。
// 起動直後に1回実行し、コンテキストがキャンセルされるまで継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("照合スケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("job_count", len(s.order)),
	)

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("照合スケジューラを停止しました")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce は全ジョブを1回ずつ実行する。あるジョブの失敗は他のジョブの実行を妨げない。
// 失敗したジョブ数を返す。
func (s *Scheduler) RunOnce(ctx context.Context) int {
	failed := 0
	for _, name := range s.order {
		if ctx.Err() != nil {
			return failed
		}
		if err := s.jobs[name].Run(ctx); err != nil {
			failed++
			s.logger.Error("ジョブの実行に失敗しました",
				slog.String("job", name),
				slog.String("error", err.Error()),
			)
		}
	}
	return failed
}
