package tools

import "context"

// Runtime carries the identity of the run a tool executes in.
type Runtime struct {
	UserID   string
	ThreadID string
}

type runtimeKey struct{}

// WithRuntime attaches run identity to ctx.
func WithRuntime(ctx context.Context, rt Runtime) context.Context {
	return context.WithValue(ctx, runtimeKey{}, rt)
}

// RuntimeFrom returns the run identity attached to ctx, if any.
func RuntimeFrom(ctx context.Context) Runtime {
	rt, _ := ctx.Value(runtimeKey{}).(Runtime)
	return rt
}
