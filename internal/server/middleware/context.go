package middleware

import "context"

type contextKey struct{ name string }

var (
	organizerIDKey = contextKey{"organizer_id"}
	emailKey       = contextKey{"email"}
)

// WithOrganizer returns a context with organizer_id and email set.
// Handlers read these via GetOrganizerID and GetEmail.
func WithOrganizer(ctx context.Context, organizerID, email string) context.Context {
	ctx = context.WithValue(ctx, organizerIDKey, organizerID)
	ctx = context.WithValue(ctx, emailKey, email)
	return ctx
}

// GetOrganizerID returns the organizer_id from context and true if set; otherwise "", false.
func GetOrganizerID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(organizerIDKey).(string)
	return v, ok
}

// GetEmail returns the email from context and true if set; otherwise "", false.
func GetEmail(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(emailKey).(string)
	return v, ok
}
