package purchase

import "time"

const (
	// defaultInitialBackoff は決済記録確定リトライの初回遅延。
	defaultInitialBackoff = 100 * time.Millisecond
	// defaultMaxBackoff は決済記録確定リトライの最大遅延。
	defaultMaxBackoff = 2 * time.Second
	// defaultCommitAttempts は決済記録確定の既定試行回数。
	defaultCommitAttempts = 3
)

// RetryPolicy は決済記録確定のリトライ方針を表す。
type RetryPolicy struct {
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy は既定のリトライ方針を返す。
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:       defaultCommitAttempts,
		InitialBackoff: defaultInitialBackoff,
		MaxBackoff:     defaultMaxBackoff,
	}
}

// CalculateBackoff は失敗回数に基づいて指数バックオフ遅延を計算する。
// 初回InitialBackoff、2倍ずつ増加、最大MaxBackoff。
func (p RetryPolicy) CalculateBackoff(failures int) time.Duration {
	delay := p.InitialBackoff
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay > p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return delay
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.Attempts <= 0 {
		p.Attempts = def.Attempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = def.InitialBackoff
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	return p
}
