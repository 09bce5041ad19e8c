package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned for a malformed token, a bad signature, an
	// unexpected signing method or a token without a subject.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token is past its exp claim.
	ErrExpiredToken = errors.New("token expired")
)

const issuer = "posts-api"

// Claims represents the claims carried by both access and refresh tokens.
// The subject is the user ID.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID returns the token subject.
func (c *Claims) UserID() string {
	return c.Subject
}

// Issue signs an HS256 token for subject that expires after ttl.
func Issue(subject string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of tokenString and returns its claims.
func Verify(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// JWTManager binds token issuing to the access and refresh secrets.
type JWTManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewJWTManager creates a JWTManager. The two secrets must be set and
// distinct so a token of one kind never verifies as the other.
func NewJWTManager(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration) (*JWTManager, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("jwt: access and refresh secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("jwt: access and refresh secrets must differ")
	}
	if accessExpiry <= 0 || refreshExpiry <= 0 {
		return nil, errors.New("jwt: token expiries must be positive")
	}
	return &JWTManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}, nil
}

// GenerateAccessToken issues a short-lived access token for userID.
func (m *JWTManager) GenerateAccessToken(userID string) (string, error) {
	token, err := Issue(userID, m.accessSecret, m.accessExpiry)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return token, nil
}

// GenerateRefreshToken issues a long-lived refresh token for userID.
func (m *JWTManager) GenerateRefreshToken(userID string) (string, error) {
	token, err := Issue(userID, m.refreshSecret, m.refreshExpiry)
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return token, nil
}

// ValidateAccessToken verifies a token signed with the access secret.
func (m *JWTManager) ValidateAccessToken(token string) (*Claims, error) {
	return Verify(token, m.accessSecret)
}

// ValidateRefreshToken verifies a token signed with the refresh secret.
func (m *JWTManager) ValidateRefreshToken(token string) (*Claims, error) {
	return Verify(token, m.refreshSecret)
}

// AccessExpiry returns the access token lifetime.
func (m *JWTManager) AccessExpiry() time.Duration { return m.accessExpiry }

// RefreshExpiry returns the refresh token lifetime.
func (m *JWTManager) RefreshExpiry() time.Duration { return m.refreshExpiry }
