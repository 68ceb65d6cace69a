package repository

// MessageBus is the repositories' outbound view of the broker, used for
// fire-and-forget audit events. RPC traffic goes through the dispatcher, not
// through this interface.
type MessageBus interface {
	Publish(topic string, data []byte) error
}
