package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordClientRegistered(clientType string, success bool) {}

func (n *NoopMetrics) RecordCodeIssued(success bool)      {}
func (n *NoopMetrics) RecordCodeRedemption(result string) {}

func (n *NoopMetrics) RecordTokenIssued(tokenType, grantType string, generationTime time.Duration) {
}

func (n *NoopMetrics) RecordTokenRefresh(success bool)                             {}
func (n *NoopMetrics) RecordTokenValidation(result string, duration time.Duration) {}

func (n *NoopMetrics) RecordUpstreamExchange(success bool) {}
func (n *NoopMetrics) RecordUpstreamRefresh(success bool)  {}
func (n *NoopMetrics) RecordUpstreamLogin(success bool)    {}
