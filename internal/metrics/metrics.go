// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層、ミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordAuthAttempt(tenant, operation, result string)
	RecordTokenRejection(tenant, reason string)
	RecordPurchase(outcome string)
	RecordPurchaseLatency(duration time.Duration)
	RecordPaymentCommitFailure()
	RecordReconciled(status string, count int)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authAttempts        *prometheus.CounterVec
	tokenRejections     *prometheus.CounterVec
	purchases           *prometheus.CounterVec
	purchaseLatency     prometheus.Histogram
	paymentCommitFailed prometheus.Counter
	reconciled          *prometheus.CounterVec
	httpStatus          *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forky_auth_attempts_total",
			Help: "テナント・操作・結果別の登録/ログイン試行数",
		}, []string{"tenant", "operation", "result"}),
		tokenRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forky_token_rejections_total",
			Help: "テナント・理由別のトークン拒否数",
		}, []string{"tenant", "reason"}),
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forky_purchases_total",
			Help: "結果別のコース購入試行数",
		}, []string{"outcome"}),
		purchaseLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "forky_purchase_latency_seconds",
			Help:    "コース購入処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		paymentCommitFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forky_payment_commit_failures_total",
			Help: "リトライ後も決済記録の確定に失敗した数",
		}),
		reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forky_payments_reconciled_total",
			Help: "照合ワーカーが確定させた決済記録の数",
		}, []string{"status"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forky_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.authAttempts,
		c.tokenRejections,
		c.purchases,
		c.purchaseLatency,
		c.paymentCommitFailed,
		c.reconciled,
		c.httpStatus,
	)

	return c
}

// RecordAuthAttempt は登録/ログイン試行を記録する。
func (c *Collector) RecordAuthAttempt(tenant, operation, result string) {
	c.authAttempts.WithLabelValues(tenant, operation, result).Inc()
}

// RecordTokenRejection はトークン拒否を記録する。
func (c *Collector) RecordTokenRejection(tenant, reason string) {
	c.tokenRejections.WithLabelValues(tenant, reason).Inc()
}

// RecordPurchase は購入試行の結果を記録する。
func (c *Collector) RecordPurchase(outcome string) {
	c.purchases.WithLabelValues(outcome).Inc()
}

// RecordPurchaseLatency は購入処理のレイテンシを記録する。
func (c *Collector) RecordPurchaseLatency(duration time.Duration) {
	c.purchaseLatency.Observe(duration.Seconds())
}

// RecordPaymentCommitFailure は決済記録の確定失敗を記録する。
func (c *Collector) RecordPaymentCommitFailure() {
	c.paymentCommitFailed.Inc()
}

// RecordReconciled は照合ワーカーが処理した決済記録数を記録する。
func (c *Collector) RecordReconciled(status string, count int) {
	c.reconciled.WithLabelValues(status).Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

var _ MetricsCollector = (*Collector)(nil)
