package agent

import "context"

type ctxKey int

const (
	runIDKey ctxKey = iota
	unitKey
)

// WithRunID tags ctx with the id of the top-level run it belongs to.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

func withUnit(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, unitKey, identity)
}

// UnitFrom returns the identity of the executing unit that owns ctx.
func UnitFrom(ctx context.Context) string {
	id, _ := ctx.Value(unitKey).(string)
	return id
}
