package auth

import (
	"context"

	"nebula-backend/internal/models"

	"github.com/google/uuid"
)

// contextKey is a custom type used for context keys to avoid collisions.
type contextKey string

const (
	userIDKey  contextKey = "userID"
	sessionKey contextKey = "session"
	isAdminKey contextKey = "isAdmin"
)

// WithClaims stores the identity carried by verified claims in ctx.
func WithClaims(ctx context.Context, claims *CustomClaims) context.Context {
	ctx = context.WithValue(ctx, userIDKey, claims.UserID)
	ctx = context.WithValue(ctx, isAdminKey, claims.IsAdmin)
	return context.WithValue(ctx, sessionKey, models.SessionIdentity{
		UserID:    claims.UserID.String(),
		Email:     claims.Email,
		SessionID: claims.SessionID(),
	})
}

// GetUserIDFromContext retrieves the UserID from the request context.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey).(uuid.UUID)
	return userID, ok
}

// GetSessionFromContext retrieves the caller's SessionIdentity.
func GetSessionFromContext(ctx context.Context) (models.SessionIdentity, bool) {
	s, ok := ctx.Value(sessionKey).(models.SessionIdentity)
	return s, ok
}

// IsAdmin reports whether the caller's token carries the admin flag.
func IsAdmin(ctx context.Context) bool {
	admin, _ := ctx.Value(isAdminKey).(bool)
	return admin
}
