package control

import (
	"context"

	"github.com/nerrad567/afkloop/internal/audit"
)

// Origin identifies who asked for an action.
type Origin struct {
	// Source is audit.SourceAPI or audit.SourceMQTT.
	Source string

	// Subject is the token subject for API calls, empty otherwise.
	Subject string
}

type originKey struct{}

// WithOrigin returns a context carrying o.
func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

// OriginFrom returns the origin on ctx, or audit.SourceInternal when none was set.
func OriginFrom(ctx context.Context) Origin {
	if o, ok := ctx.Value(originKey{}).(Origin); ok {
		return o
	}
	return Origin{Source: audit.SourceInternal}
}
