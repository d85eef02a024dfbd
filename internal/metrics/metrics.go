package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

const (
	resultSuccess = "success"
	resultError   = "error"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Client Registry Metrics
	ClientsRegisteredTotal *prometheus.CounterVec

	// Authorization Code Metrics
	CodesIssuedTotal    *prometheus.CounterVec
	CodeRedemptionTotal *prometheus.CounterVec

	// Token Metrics
	TokensIssuedTotal       *prometheus.CounterVec
	TokensRefreshedTotal    *prometheus.CounterVec
	TokenValidationTotal    *prometheus.CounterVec
	TokenGenerationDuration prometheus.Histogram
	TokenValidationDuration prometheus.Histogram

	// Upstream Provider Metrics
	UpstreamExchangeTotal *prometheus.CounterVec
	UpstreamRefreshTotal  *prometheus.CounterVec
	UpstreamLoginTotal    *prometheus.CounterVec

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag
// If enabled=true, returns Prometheus-based Metrics
// If enabled=false, returns NoopMetrics (zero overhead)
// Uses sync.Once to ensure Prometheus metrics are only registered once
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	return &Metrics{
		ClientsRegisteredTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_clients_registered_total",
				Help: "Total number of dynamic client registrations",
			},
			[]string{"client_type", "result"}, // client_type: public, confidential
		),

		CodesIssuedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_authorization_codes_issued_total",
				Help: "Total number of authorization codes issued",
			},
			[]string{"result"}, // success, error
		),
		CodeRedemptionTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_authorization_code_redemption_total",
				Help: "Total number of authorization code redemption attempts",
			},
			[]string{"result"}, // success, not_found, client_mismatch, redirect_mismatch, expired, pkce_failed
		),

		TokensIssuedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_tokens_issued_total",
				Help: "Total number of tokens issued",
			},
			[]string{"token_type", "grant_type"}, // token_type: access, refresh
		),
		TokensRefreshedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_tokens_refreshed_total",
				Help: "Total number of token refresh attempts",
			},
			[]string{"result"},
		),
		TokenValidationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_token_validation_total",
				Help: "Total number of access token validations",
			},
			[]string{"result"}, // valid, invalid
		),
		TokenGenerationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "oauth_token_generation_duration_seconds",
				Help:    "Time taken to generate tokens",
				Buckets: prometheus.DefBuckets,
			},
		),
		TokenValidationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "oauth_token_validation_duration_seconds",
				Help:    "Time taken to validate tokens",
				Buckets: prometheus.DefBuckets,
			},
		),

		UpstreamExchangeTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_code_exchange_total",
				Help: "Total number of upstream authorization code exchanges",
			},
			[]string{"result"},
		),
		UpstreamRefreshTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_token_refresh_total",
				Help: "Total number of upstream token refresh attempts",
			},
			[]string{"result"},
		),
		UpstreamLoginTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_login_total",
				Help: "Total number of completed upstream login callbacks",
			},
			[]string{"result"},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP request latency in seconds",
				Buckets: []float64{
					0.001, 0.005, 0.010, 0.025, 0.050,
					0.100, 0.250, 0.500, 1.0, 2.5, 5.0, 10.0,
				},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),
	}
}

func boolResult(success bool) string {
	if success {
		return resultSuccess
	}
	return resultError
}

// RecordClientRegistered records a dynamic registration attempt
func (m *Metrics) RecordClientRegistered(clientType string, success bool) {
	m.ClientsRegisteredTotal.WithLabelValues(clientType, boolResult(success)).Inc()
}

// RecordCodeIssued records authorization code issuance
func (m *Metrics) RecordCodeIssued(success bool) {
	m.CodesIssuedTotal.WithLabelValues(boolResult(success)).Inc()
}

// RecordCodeRedemption records a redemption attempt by outcome
func (m *Metrics) RecordCodeRedemption(result string) {
	m.CodeRedemptionTotal.WithLabelValues(result).Inc()
}

// RecordTokenIssued records token issuance
func (m *Metrics) RecordTokenIssued(tokenType, grantType string, generationTime time.Duration) {
	m.TokensIssuedTotal.WithLabelValues(tokenType, grantType).Inc()
	m.TokenGenerationDuration.Observe(generationTime.Seconds())
}

// RecordTokenRefresh records a refresh grant attempt
func (m *Metrics) RecordTokenRefresh(success bool) {
	m.TokensRefreshedTotal.WithLabelValues(boolResult(success)).Inc()
}

// RecordTokenValidation records access token validation
func (m *Metrics) RecordTokenValidation(result string, duration time.Duration) {
	m.TokenValidationTotal.WithLabelValues(result).Inc()
	m.TokenValidationDuration.Observe(duration.Seconds())
}

// RecordUpstreamExchange records an upstream code exchange attempt
func (m *Metrics) RecordUpstreamExchange(success bool) {
	m.UpstreamExchangeTotal.WithLabelValues(boolResult(success)).Inc()
}

// RecordUpstreamRefresh records an upstream token refresh attempt
func (m *Metrics) RecordUpstreamRefresh(success bool) {
	m.UpstreamRefreshTotal.WithLabelValues(boolResult(success)).Inc()
}

// RecordUpstreamLogin records an upstream login callback outcome
func (m *Metrics) RecordUpstreamLogin(success bool) {
	m.UpstreamLoginTotal.WithLabelValues(boolResult(success)).Inc()
}
