package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	db_models "nebula-backend/internal/models"
	"nebula-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

type PostgresStore struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

func NewPostgresStore(db *pgxpool.Pool, log zerolog.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log.With().Str("component", "postgres-store").Logger()}
}

// EnsureSchema creates the tables the store needs when they are missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

const userColumns = `id, email, name, hashed_password, is_approved, is_admin, created_at, updated_at`

func scanUser(row pgx.Row) (*db_models.User, error) {
	user := &db_models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.HashedPassword,
		&user.IsApproved,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByEmail retrieves a user by their email address.
// Returns store.ErrNotFound if the user does not exist.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*db_models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(s.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.log.Debug().Str("email", email).Msg("user not found by email")
			return nil, store.ErrNotFound
		}
		s.log.Error().Err(err).Str("email", email).Msg("failed to query user by email")
		return nil, fmt.Errorf("database error fetching user by email: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by primary key.
func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*db_models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		s.log.Error().Err(err).Str("user_id", id.String()).Msg("failed to query user by id")
		return nil, fmt.Errorf("database error fetching user by id: %w", err)
	}
	return user, nil
}

// CreateUser inserts a new user record into the database.
func (s *PostgresStore) CreateUser(ctx context.Context, user *db_models.User) error {
	query := `
		INSERT INTO users (id, email, name, hashed_password, is_approved, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := s.db.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.HashedPassword,
		user.IsApproved,
		user.IsAdmin,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == uniqueViolation {
				return store.ErrConflict
			}
			s.log.Error().
				Str("email", user.Email).
				Str("pg_code", pgErr.Code).
				Str("pg_detail", pgErr.Detail).
				Msg(pgErr.Message)
		} else {
			s.log.Error().Err(err).Str("email", user.Email).Msg("failed to insert user")
		}
		return fmt.Errorf("database error creating user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID.String()).Str("email", user.Email).Msg("user created")
	return nil
}

// SetUserApproval flips the approval flag of a user.
func (s *PostgresStore) SetUserApproval(ctx context.Context, id uuid.UUID, approved bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET is_approved = $2, updated_at = NOW() WHERE id = $1`,
		id, approved)
	if err != nil {
		return fmt.Errorf("database error updating user approval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
