package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "nebula-backend"

// sessionIDLength is how many characters of the token id form the session id
// forwarded to the webhook.
const sessionIDLength = 8

var ErrInvalidClaims = errors.New("invalid token claims")

// CustomClaims includes standard JWT claims plus our custom ones.
type CustomClaims struct {
	UserID  uuid.UUID `json:"user_id"`
	Email   string    `json:"email"`
	IsAdmin bool      `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

// SessionID derives the short session id from the token id.
func (c *CustomClaims) SessionID() string {
	if len(c.ID) <= sessionIDLength {
		return c.ID
	}
	return c.ID[:sessionIDLength]
}

// NewAccessToken generates a new HS256 access token. Every token gets a fresh
// jti, so every login starts a new session.
func NewAccessToken(userID uuid.UUID, email string, isAdmin bool, jwtSecret string, expiration time.Duration) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		UserID:  userID,
		Email:   email,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID.String(),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies the signature and standard claims of tokenString.
// Errors wrap the jwt package sentinels (jwt.ErrTokenExpired and friends).
func ParseAccessToken(tokenString, jwtSecret string) (*CustomClaims, error) {
	claims := &CustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.UserID == uuid.Nil || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing user id or token id", ErrInvalidClaims)
	}
	return claims, nil
}
