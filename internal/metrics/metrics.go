package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds planner-related Prometheus metrics
// プランナー関連のPrometheusメトリクスを保持
type Metrics struct {
	// RowsSanitized counts POS rows accepted after sanitization
	RowsSanitized prometheus.Counter

	// RowsDropped counts POS rows dropped during sanitization
	// Labels: reason (missing_critical, invalid_numeric, non_positive)
	RowsDropped *prometheus.CounterVec

	// AnalysesGenerated counts recommendation analyses generated
	// Labels: season
	AnalysesGenerated *prometheus.CounterVec

	// ModelFits counts forecast model fit attempts
	// Labels: model, outcome (ok, insufficient_history, fit_failed)
	ModelFits *prometheus.CounterVec

	// RequestDuration tracks HTTP request latency
	// Labels: method, path, status
	RequestDuration *prometheus.HistogramVec
}

// New creates a Metrics instance with all collectors registered
// 全コレクターを登録したMetricsインスタンスを作成
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		RowsSanitized: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "planner_rows_sanitized_total",
				Help: "Total number of POS transaction rows accepted after sanitization",
			},
		),

		RowsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_rows_dropped_total",
				Help: "Total number of POS transaction rows dropped during sanitization",
			},
			[]string{"reason"},
		),

		AnalysesGenerated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_analyses_generated_total",
				Help: "Total number of seasonal recommendation analyses generated",
			},
			[]string{"season"},
		),

		ModelFits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_model_fits_total",
				Help: "Total number of forecast model fit attempts by outcome",
			},
			[]string{"model", "outcome"},
		),

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "planner_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
}

// RecordSanitized records sanitization results for one ingest batch
// 1回の取り込みバッチのサニタイズ結果を記録
func (m *Metrics) RecordSanitized(accepted, missingCritical, invalidNumeric, nonPositive int) {
	if m.RowsSanitized != nil {
		m.RowsSanitized.Add(float64(accepted))
	}
	if m.RowsDropped != nil {
		m.RowsDropped.WithLabelValues("missing_critical").Add(float64(missingCritical))
		m.RowsDropped.WithLabelValues("invalid_numeric").Add(float64(invalidNumeric))
		m.RowsDropped.WithLabelValues("non_positive").Add(float64(nonPositive))
	}
}

// RecordAnalysis records a generated recommendation analysis
// 生成された推奨分析を記録
func (m *Metrics) RecordAnalysis(season string) {
	if m.AnalysesGenerated != nil {
		m.AnalysesGenerated.WithLabelValues(season).Inc()
	}
}

// RecordModelFit records a forecast model fit outcome
// 予測モデルのフィット結果を記録
func (m *Metrics) RecordModelFit(model, outcome string) {
	if m.ModelFits != nil {
		m.ModelFits.WithLabelValues(model, outcome).Inc()
	}
}

// RecordRequest records an HTTP request duration
// HTTPリクエスト時間を記録
func (m *Metrics) RecordRequest(method, path, status string, seconds float64) {
	if m.RequestDuration != nil {
		m.RequestDuration.WithLabelValues(method, path, status).Observe(seconds)
	}
}

// Handler returns the HTTP handler exposing registered metrics
// 登録済みメトリクスを公開するHTTPハンドラーを返す
func Handler() http.Handler {
	return promhttp.Handler()
}
