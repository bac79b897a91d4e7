package scanner

import "context"

type contextKey struct{}

// WithClassification attaches a verdict to the request context.
func WithClassification(ctx context.Context, c Classification) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the verdict attached by the middleware. A request that
// skipped classification reports ok=false; callers treat that as HUMAN.
func FromContext(ctx context.Context) (Classification, bool) {
	c, ok := ctx.Value(contextKey{}).(Classification)
	return c, ok
}
