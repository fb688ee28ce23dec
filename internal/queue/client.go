package queue

import "context"

// Client publishes pipeline events to a queue backend.
type Client interface {
	Send(ctx context.Context, evt Event) error
}

// NopClient drops every event.
type NopClient struct{}

func (NopClient) Send(context.Context, Event) error { return nil }

var _ Client = NopClient{}
