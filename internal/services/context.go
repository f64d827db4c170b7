package services

import "context"

type contextKey uint8

const (
	jobIDKey contextKey = iota
	discKey
)

// WithJobID annotates ctx with the backup job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	return withString(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the backup job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, jobIDKey)
}

// WithDisc annotates ctx with the sanitized disc name.
func WithDisc(ctx context.Context, name string) context.Context {
	return withString(ctx, discKey, name)
}

// DiscFromContext returns the disc name if present.
func DiscFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, discKey)
}

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}
