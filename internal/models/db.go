package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user in the database.
// New accounts wait for an administrator to approve them before they can log in.
type User struct {
	ID             uuid.UUID `db:"id"`
	Email          string    `db:"email"`
	Name           string    `db:"name"`
	HashedPassword string    `db:"hashed_password"`
	IsApproved     bool      `db:"is_approved"`
	IsAdmin        bool      `db:"is_admin"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}
