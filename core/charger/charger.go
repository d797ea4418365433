// Package charger defines the contracts between the poll loop and the
// vendor-facing session and status implementations.
package charger

import (
	"context"

	"github.com/kilianp07/chargepoint-mqtt/core/model"
)

// Session is an opaque authenticated context with the vendor service.
// It is created by a SessionManager and only ever handed back to the
// fetcher that shares its implementation.
type Session interface {
	// ID identifies the session for logging. It must not expose the token.
	ID() string
}

// SessionManager owns authentication state with the vendor service.
// At most one session is live at a time.
type SessionManager interface {
	// EnsureSession returns the current session, logging in first if no
	// valid session exists. Rejected credentials yield ErrAuth; transport
	// failures yield a transient error.
	EnsureSession(ctx context.Context) (Session, error)

	// Invalidate discards the current session so the next EnsureSession
	// performs a fresh login.
	Invalidate()
}

// StatusFetcher retrieves the live charger status under a session.
type StatusFetcher interface {
	// Fetch returns the current snapshot. An expired session yields
	// ErrSessionExpired, malformed responses yield ErrUnexpectedShape and
	// transport failures yield a transient error.
	Fetch(ctx context.Context, sess Session) (model.ChargerSnapshot, error)
}
