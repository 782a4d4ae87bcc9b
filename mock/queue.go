package mock

import "context"

type Producer struct {
	EnqueueFn func(ctx context.Context, payload string) error
}

func (p Producer) Enqueue(ctx context.Context, payload string) error {
	return p.EnqueueFn(ctx, payload)
}
