package contract

import "context"

type ToolGateway interface {
	Execute(ctx context.Context, reqs []ToolRequest) ([]ToolResult, error)
}

// Retriever returns the best single procedure document for id, or found=false.
type Retriever interface {
	Lookup(ctx context.Context, id string, audience string) (text string, found bool, err error)
}

// EventPublisher delivers domain events to downstream workers.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}
