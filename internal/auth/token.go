package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "zonehunt-server"

// DefaultTokenTTL is how long an issued session token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// Identity is the verified identity carried by a session token. Admin
// players may change other players' roles; everyone else only their own.
type Identity struct {
	PlayerID    string
	DisplayName string
	PhotoURL    string
	Admin       bool
}

type claims struct {
	jwt.RegisteredClaims

	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
	Admin       bool   `json:"admin,omitempty"`
}

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration

	now func() time.Time
}

// NewTokenService creates a token service. A zero ttl means DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a session token for the given identity.
func (s *TokenService) Issue(id Identity) (string, error) {
	if id.PlayerID == "" {
		return "", errors.New("player ID is required")
	}

	now := s.now()
	c := &claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   id.PlayerID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		DisplayName: id.DisplayName,
		PhotoURL:    id.PhotoURL,
		Admin:       id.Admin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(s.secret)
}

// Verify parses and validates a session token and returns the identity it
// carries.
func (s *TokenService) Verify(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		return Identity{}, fmt.Errorf("failed to parse token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, errors.New("invalid token claims")
	}
	if c.Issuer != tokenIssuer {
		return Identity{}, errors.New("invalid token issuer")
	}
	if c.Subject == "" {
		return Identity{}, errors.New("token has no subject")
	}

	return Identity{
		PlayerID:    c.Subject,
		DisplayName: c.DisplayName,
		PhotoURL:    c.PhotoURL,
		Admin:       c.Admin,
	}, nil
}
