package store

import (
	"context"
	"errors"

	db_models "nebula-backend/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a unique constraint would be violated.
var ErrConflict = errors.New("record already exists")

// UserStore defines the account operations backing authentication.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*db_models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*db_models.User, error)
	CreateUser(ctx context.Context, user *db_models.User) error
	SetUserApproval(ctx context.Context, id uuid.UUID, approved bool) error
}

// SlotStore is a key-value store holding one mutable value per (owner, key).
// It plays the role browser local storage plays for a single profile: each
// feature owns a key and rewrites the whole value on every change.
type SlotStore interface {
	// GetSlot returns ErrNotFound when nothing was stored under key.
	GetSlot(ctx context.Context, owner, key string) ([]byte, error)
	PutSlot(ctx context.Context, owner, key string, value []byte) error
	// DeleteSlot is a no-op when the slot does not exist.
	DeleteSlot(ctx context.Context, owner, key string) error
}

// Store is everything the server needs from its database.
type Store interface {
	UserStore
	SlotStore
}
