// Package metrics exposes Prometheus collectors for analyses, order
// validation, exchange REST calls and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyoungcy/coinonebot/internal/domain"
)

const namespace = "coinonebot"

// Registry owns every collector on a private prometheus.Registry.
type Registry struct {
	reg *prometheus.Registry

	Analyses       *prometheus.CounterVec
	Flags          *prometheus.CounterVec
	MarketPressure *prometheus.GaugeVec
	LiquidityScore *prometheus.GaugeVec
	Validations    *prometheus.CounterVec
	RESTCalls      *prometheus.CounterVec
	RESTLatency    *prometheus.HistogramVec
	HTTPRequests   *prometheus.CounterVec
	HTTPLatency    *prometheus.HistogramVec
	WSClients      prometheus.Gauge
}

// New registers all collectors plus the Go and process collectors.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		Analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Snapshot analyses computed, by symbol.",
		}, []string{"symbol"}),
		Flags: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flags_total",
			Help:      "Analysis flags raised, by symbol and flag.",
		}, []string{"symbol", "flag"}),
		MarketPressure: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "market_pressure",
			Help:      "Latest market pressure index in [-1, 1].",
		}, []string{"symbol"}),
		LiquidityScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "liquidity_score",
			Help:      "Latest liquidity score in [-1, 1].",
		}, []string{"symbol"}),
		Validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_validations_total",
			Help:      "Order validations, by result.",
		}, []string{"result"}),
		RESTCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_requests_total",
			Help:      "Exchange REST calls, by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		RESTLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exchange_request_duration_seconds",
			Help:      "Exchange REST call latency.",
			Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests served, by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Connected WebSocket clients.",
		}),
	}

	r.reg.MustRegister(
		r.Analyses, r.Flags, r.MarketPressure, r.LiquidityScore,
		r.Validations, r.RESTCalls, r.RESTLatency,
		r.HTTPRequests, r.HTTPLatency, r.WSClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveAnalysis counts result and records its scores and flags.
func (r *Registry) ObserveAnalysis(result domain.AnalysisResult) {
	r.Analyses.WithLabelValues(result.Symbol).Inc()
	r.MarketPressure.WithLabelValues(result.Symbol).Set(result.Scores.MarketPressure)
	r.LiquidityScore.WithLabelValues(result.Symbol).Set(result.Scores.LiquidityScore)
	for _, f := range result.Flags {
		r.Flags.WithLabelValues(result.Symbol, f).Inc()
	}
}

// ObserveValidation counts one order validation.
func (r *Registry) ObserveValidation(valid bool) {
	label := "invalid"
	if valid {
		label = "valid"
	}
	r.Validations.WithLabelValues(label).Inc()
}

// ObserveRequest records one exchange REST call.
func (r *Registry) ObserveRequest(endpoint, outcome string, elapsed time.Duration) {
	r.RESTCalls.WithLabelValues(endpoint, outcome).Inc()
	r.RESTLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveHTTP records one served API request.
func (r *Registry) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	r.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPLatency.WithLabelValues(route).Observe(elapsed.Seconds())
}

// SetWSClients publishes the current WebSocket client count.
func (r *Registry) SetWSClients(n int) {
	r.WSClients.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
