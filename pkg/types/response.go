// Package types holds the wire envelopes the Wanterio API answers with.
package types

// SuccessEnvelope wraps every 2xx payload.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the client-visible part of a failure. Retryable tells the
// patient app whether repeating the same request may succeed, as with a
// timed out datastore call.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
