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
// ゲートウェイ・プッシュマネージャー・オーケストレーターから利用する。
type MetricsCollector interface {
	RecordGatewayRequest(endpoint string, statusCode int)
	RecordGatewayFailure(endpoint string, kind string)
	RecordGatewayLatency(duration time.Duration)
	RecordBootstrap(result string)
	RecordDeviceRegistered()
	RecordScreenTransition(to string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	gatewayRequests   *prometheus.CounterVec
	gatewayFailures   *prometheus.CounterVec
	gatewayLatency    prometheus.Histogram
	pushBootstrap     *prometheus.CounterVec
	deviceRegistered  prometheus.Counter
	screenTransitions *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		gatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aury_gateway_requests_total",
			Help: "バックエンドゲートウェイのリクエスト数（エンドポイント・ステータス別）",
		}, []string{"endpoint", "status_code"}),
		gatewayFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aury_gateway_failures_total",
			Help: "バックエンドゲートウェイの失敗数（種別別）",
		}, []string{"endpoint", "kind"}),
		gatewayLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "aury_gateway_latency_seconds",
			Help:    "バックエンドゲートウェイ呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		pushBootstrap: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aury_push_bootstrap_total",
			Help: "プッシュ登録ブートストラップの試行数（結果別）",
		}, []string{"result"}),
		deviceRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aury_push_register_total",
			Help: "バックエンドへのデバイス登録報告の合計数",
		}),
		screenTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aury_screen_transitions_total",
			Help: "画面遷移の合計数（遷移先別）",
		}, []string{"to"}),
	}

	reg.MustRegister(
		c.gatewayRequests,
		c.gatewayFailures,
		c.gatewayLatency,
		c.pushBootstrap,
		c.deviceRegistered,
		c.screenTransitions,
	)

	return c
}

// RecordGatewayRequest はゲートウェイリクエストの完了を記録する。
func (c *Collector) RecordGatewayRequest(endpoint string, statusCode int) {
	c.gatewayRequests.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
}

// RecordGatewayFailure はゲートウェイの失敗を種別付きで記録する。
func (c *Collector) RecordGatewayFailure(endpoint string, kind string) {
	c.gatewayFailures.WithLabelValues(endpoint, kind).Inc()
}

// RecordGatewayLatency はゲートウェイ呼び出しのレイテンシを記録する。
func (c *Collector) RecordGatewayLatency(duration time.Duration) {
	c.gatewayLatency.Observe(duration.Seconds())
}

// RecordBootstrap はブートストラップの試行結果を記録する。
func (c *Collector) RecordBootstrap(result string) {
	c.pushBootstrap.WithLabelValues(result).Inc()
}

// RecordDeviceRegistered はバックエンドへのデバイス登録報告を記録する。
func (c *Collector) RecordDeviceRegistered() {
	c.deviceRegistered.Inc()
}

// RecordScreenTransition は画面遷移を記録する。
func (c *Collector) RecordScreenTransition(to string) {
	c.screenTransitions.WithLabelValues(to).Inc()
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
