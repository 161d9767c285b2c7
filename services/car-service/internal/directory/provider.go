package directory

import "context"

// Provider resolves a user id to an email address, backed by user-service.
// Lookups are best-effort: callers degrade rather than fail when the
// directory is unreachable.
type Provider interface {
	UserEmail(ctx context.Context, userID string) (string, error)
}
