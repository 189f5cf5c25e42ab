package events

import "context"

// Publisher sends one event to a topic. Implementations marshal the payload
// to JSON.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Handler processes the raw payload of one delivered event. Returning an
// error marks the event as unprocessable; the consumer logs it and moves on
// (log-and-drop policy, there is no dead-letter channel).
type Handler func(ctx context.Context, payload []byte) error
