package metrics

import "time"

// Recorder is the metrics interface consumed by services and handlers.
// Implemented by Metrics (Prometheus) and NoopMetrics (disabled).
type Recorder interface {
	// Client registry
	RecordClientRegistered(clientType string, success bool)

	// Authorization codes
	RecordCodeIssued(success bool)
	RecordCodeRedemption(result string)

	// Tokens
	RecordTokenIssued(tokenType, grantType string, generationTime time.Duration)
	RecordTokenRefresh(success bool)
	RecordTokenValidation(result string, duration time.Duration)

	// Upstream provider
	RecordUpstreamExchange(success bool)
	RecordUpstreamRefresh(success bool)
	RecordUpstreamLogin(success bool)
}
