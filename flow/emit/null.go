package emit

import "context"

// NullEmitter implements Emitter by discarding every event. The default
// for an Engine constructed without WithEmitter.
type NullEmitter struct{}

// NewNullEmitter constructs a NullEmitter.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards event.
func (n *NullEmitter) Emit(event Event) {}

// EmitBatch discards events.
func (n *NullEmitter) EmitBatch(_ context.Context, events []Event) error {
	return nil
}

// Flush is a no-op.
func (n *NullEmitter) Flush(_ context.Context) error {
	return nil
}
