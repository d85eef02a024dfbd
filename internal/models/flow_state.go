package models

import "time"

// FlowState is the transient record for one upstream login attempt. It
// lives only in the cache under the state value, with the flow-state TTL,
// and is consumed atomically on callback. The state value doubles as the
// CSRF check for the upstream redirect.
type FlowState struct {
	State        string    `json:"state"`
	CodeVerifier string    `json:"code_verifier"`
	ReturnTo     string    `json:"return_to"` // where to send the browser after login
	CreatedAt    time.Time `json:"created_at"`
}
