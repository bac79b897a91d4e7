// Package fingerprint derives a normalized behavioral fingerprint from one
// inbound request. Fingerprints are request-scoped and never persisted.
package fingerprint

import "time"

// NetworkOrigin classifies where a request's IP resolves.
type NetworkOrigin string

const (
	OriginResidential NetworkOrigin = "residential"
	OriginDatacenter  NetworkOrigin = "datacenter"
	OriginUnknown     NetworkOrigin = "unknown"
)

// Signals are the raw inputs captured around a single request.
type Signals struct {
	// FillDuration is the time between form render and submission as
	// declared by the client. Zero means the client sent nothing.
	FillDuration time.Duration
	// ClientIdentity is the raw User-Agent header.
	ClientIdentity string
	// ClientIP is the resolved originating address.
	ClientIP string
	// WebDriver is the explicit automation flag (navigator.webdriver).
	WebDriver bool
}

// Fingerprint is the normalized view the scanner scores. It carries shape
// judgments, not raw request data, so the scanner stays a pure function.
type Fingerprint struct {
	FillDuration   time.Duration
	ClientIdentity string
	Browser        string
	OS             string

	// AutomationFlag is saturating: the scanner drives the score to zero
	// when it is set, regardless of other signals.
	AutomationFlag bool
	// BotSignature is set when the client identity matches a known
	// automation library or crawler signature.
	BotSignature bool
	// GenericIdentity is set for empty or library-default identity strings.
	GenericIdentity bool

	Origin NetworkOrigin
}
