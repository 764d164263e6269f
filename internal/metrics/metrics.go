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
// ミドルウェア、ハンドラー、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(route, method string, status int, duration time.Duration)
	RecordAuthOutcome(outcome string)
	RecordAuthzDenial(requiredRoles string)
	RecordBackendFailure(operation string)
	RecordDocumentUpload(result string, missingExif bool)
	RecordInvitesCleaned(action string, count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
	authOutcomes    *prometheus.CounterVec
	authzDenials    *prometheus.CounterVec
	backendFailures *prometheus.CounterVec
	documentUploads *prometheus.CounterVec
	invitesCleaned  *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lendbridge_http_requests_total",
			Help: "ルート・メソッド・ステータス別のHTTPリクエスト数",
		}, []string{"route", "method", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lendbridge_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		authOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lendbridge_auth_outcomes_total",
			Help: "セッション解決の結果別件数",
		}, []string{"outcome"}),
		authzDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lendbridge_authz_denials_total",
			Help: "ロール不足で拒否されたリクエスト数",
		}, []string{"required_roles"}),
		backendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lendbridge_backend_failures_total",
			Help: "バックエンドストアのエラー件数",
		}, []string{"operation"}),
		documentUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lendbridge_document_uploads_total",
			Help: "書類アップロードの結果別件数",
		}, []string{"result", "missing_exif"}),
		invitesCleaned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lendbridge_invites_cleaned_total",
			Help: "クリーンアップジョブで処理した招待の件数",
		}, []string{"action"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.authOutcomes,
		c.authzDenials,
		c.backendFailures,
		c.documentUploads,
		c.invitesCleaned,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの件数と処理時間を記録する。
func (c *Collector) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordAuthOutcome はセッション解決の結果を記録する。
func (c *Collector) RecordAuthOutcome(outcome string) {
	c.authOutcomes.WithLabelValues(outcome).Inc()
}

// RecordAuthzDenial はロール不足による拒否を記録する。
func (c *Collector) RecordAuthzDenial(requiredRoles string) {
	c.authzDenials.WithLabelValues(requiredRoles).Inc()
}

// RecordBackendFailure はバックエンドエラーを記録する。
func (c *Collector) RecordBackendFailure(operation string) {
	c.backendFailures.WithLabelValues(operation).Inc()
}

// RecordDocumentUpload は書類アップロードの結果を記録する。
func (c *Collector) RecordDocumentUpload(result string, missingExif bool) {
	c.documentUploads.WithLabelValues(result, strconv.FormatBool(missingExif)).Inc()
}

// RecordInvitesCleaned はクリーンアップで処理した招待数を記録する。
func (c *Collector) RecordInvitesCleaned(action string, count int64) {
	if count <= 0 {
		return
	}
	c.invitesCleaned.WithLabelValues(action).Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute はワーカー用に/metricsと/healthだけを持つハンドラーを返す。
// healthがnilの場合は/healthをマウントしない。
func SetupMetricsRoute(gatherer prometheus.Gatherer, health http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler(gatherer))
	if health != nil {
		mux.Handle("GET /health", health)
	}
	return mux
}

var _ MetricsCollector = (*Collector)(nil)
