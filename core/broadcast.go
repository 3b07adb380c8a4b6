package core

// Broadcaster pushes real-time events to subscribed clients.
// Publish is best-effort: implementations must never block the caller
// and must never return delivery failures to it.
type Broadcaster interface {
	Publish(topic string, payload interface{})
}
