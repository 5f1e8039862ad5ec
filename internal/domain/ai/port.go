package ai

import "context"

// Model is a single-shot chat completion against an external reasoning model.
type Model interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
