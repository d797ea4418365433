// Package mqtt defines the broker-facing contract used by the poll loop.
package mqtt

// Publisher sends retained values to the message broker. Implementations own
// the connection lifecycle, including reconnection.
type Publisher interface {
	// PublishRetained publishes payload on topic with the retained flag set.
	// Calls made while the broker connection is down return ErrNotConnected
	// instead of blocking.
	PublishRetained(topic, payload string) error
}
