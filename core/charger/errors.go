package charger

import "errors"

// ErrAuth is returned when the vendor service rejects the credentials.
var ErrAuth = errors.New("authentication rejected")

// ErrSessionExpired is returned when the vendor service no longer accepts the
// current session token.
var ErrSessionExpired = errors.New("session expired")

// ErrUnexpectedShape is returned when a vendor response is missing fields or
// cannot be decoded. It usually means the upstream API changed.
var ErrUnexpectedShape = errors.New("unexpected response shape")

// Kind classifies an error for logging and metrics. Errors matching none of
// the sentinels are considered transient (network, timeout, broker down).
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAuth):
		return "auth_error"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrUnexpectedShape):
		return "unexpected_shape"
	default:
		return "transient_error"
	}
}
