package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"

	"nebula-backend/internal/auth"
	"nebula-backend/internal/config"
	"nebula-backend/internal/models"
	"nebula-backend/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Custom errors for auth service
var (
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountNotApproved = errors.New("account is awaiting approval")
	ErrHashingPassword    = errors.New("failed to hash password")
	ErrCreatingToken      = errors.New("failed to create access token")
	ErrCreatingUser       = errors.New("failed to create user")
	ErrValidation         = errors.New("input validation failed")
	ErrForbidden          = errors.New("operation requires an administrator")
)

// AuthError carries the localized notice the client shows for a failed
// authentication next to the underlying sentinel.
type AuthError struct {
	Notice models.Notice
	Err    error
}

func (e *AuthError) Error() string { return e.Err.Error() }
func (e *AuthError) Unwrap() error { return e.Err }

var (
	noticeNotApproved = models.Notice{
		Title:       "Conta não aprovada",
		Description: "Sua conta está aguardando aprovação pelo administrador.",
	}
	noticeMissingCredentials = models.Notice{
		Title:       "Erro no login",
		Description: "Email e senha são necessários",
	}
	noticeInvalidCredentials = models.Notice{
		Title:       "Erro no login",
		Description: "Email ou senha inválidos",
	}
)

type AuthService struct {
	store store.UserStore
	cfg   *config.Config
	log   zerolog.Logger
}

func NewAuthService(s store.UserStore, cfg *config.Config, log zerolog.Logger) *AuthService {
	return &AuthService{
		store: s,
		cfg:   cfg,
		log:   log.With().Str("component", "auth-service").Logger(),
	}
}

// Signup creates a user. New accounts must be approved by an administrator
// before they can log in, except the configured admin emails.
func (s *AuthService) Signup(ctx context.Context, email, password, name string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password cannot be empty", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	}

	_, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		s.log.Error().Err(err).Str("email", email).Msg("hashing password failed")
		return nil, ErrHashingPassword
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	isAdmin := slices.Contains(s.cfg.AdminEmails, email)

	user := &models.User{
		ID:             uuid.New(),
		Email:          email,
		Name:           name,
		HashedPassword: hashedPassword,
		IsApproved:     isAdmin,
		IsAdmin:        isAdmin,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrUserAlreadyExists
		}
		s.log.Error().Err(err).Str("email", email).Msg("creating user failed")
		return nil, fmt.Errorf("%w: %v", ErrCreatingUser, err)
	}

	s.log.Info().Str("user_id", user.ID.String()).Bool("admin", isAdmin).Msg("user signed up")
	return user, nil
}

// Login verifies credentials and returns an access token. Unapproved
// accounts are refused with an *AuthError.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", nil, &AuthError{Notice: noticeMissingCredentials, Err: ErrInvalidCredentials}
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, &AuthError{Notice: noticeInvalidCredentials, Err: ErrInvalidCredentials}
		}
		return "", nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	ok, err := auth.CheckPasswordHash(password, user.HashedPassword)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("comparing password hash failed")
	}
	if !ok {
		return "", nil, &AuthError{Notice: noticeInvalidCredentials, Err: ErrInvalidCredentials}
	}
	if !user.IsApproved {
		return "", nil, &AuthError{Notice: noticeNotApproved, Err: ErrAccountNotApproved}
	}

	token, err := auth.NewAccessToken(user.ID, user.Email, user.IsAdmin, s.cfg.JWTSecret, s.cfg.TokenExpiration)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID.String()).Msg("signing access token failed")
		return "", nil, ErrCreatingToken
	}

	s.log.Info().Str("user_id", user.ID.String()).Msg("user logged in")
	return token, user, nil
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.store.GetUserByID(ctx, userID)
}

// Approve lets userID log in. adminID must belong to an administrator.
func (s *AuthService) Approve(ctx context.Context, adminID, userID uuid.UUID) (*models.User, error) {
	admin, err := s.store.GetUserByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if !admin.IsAdmin {
		return nil, ErrForbidden
	}
	if err := s.store.SetUserApproval(ctx, userID, true); err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", userID.String()).Str("admin_id", adminID.String()).Msg("user approved")
	return s.store.GetUserByID(ctx, userID)
}
