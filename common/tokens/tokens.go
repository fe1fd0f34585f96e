// Package tokens issues and verifies the signed bearer tokens used by the
// gateway for HTTP calls and realtime handshakes.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers bad signatures, expiry, malformed input and kind mismatch.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingSecret is returned by New when a signing secret is empty.
	ErrMissingSecret = errors.New("token secret must not be empty")
)

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultIssuer     = "micro-do"
)

// Identity is the set of claims carried by every token.
type Identity struct {
	UserID   string `json:"id" yaml:"id"`
	Email    string `json:"email" yaml:"email"`
	Username string `json:"username" yaml:"username"`
}

// Claims is the JWT payload. The subject is the user id.
type Claims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Kind     Kind   `json:"kind"`
	jwt.RegisteredClaims
}

// Identity returns the identity encoded in the claims.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.Subject, Email: c.Email, Username: c.Username}
}

// Config holds the signing material for both token kinds.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

type keyConfig struct {
	secret []byte
	ttl    time.Duration
}

// Service signs and verifies tokens. Access and refresh tokens use distinct
// secrets and lifetimes, and each carries its kind so a token of one kind is
// rejected where the other is required even if the secrets were shared.
type Service struct {
	keys   map[Kind]keyConfig
	issuer string
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a token Service.
func New(cfg Config, opts ...Option) (*Service, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}

	s := &Service{
		keys: map[Kind]keyConfig{
			KindAccess:  {secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL},
			KindRefresh: {secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL},
		},
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the configured lifetime of kind.
func (s *Service) TTL(kind Kind) time.Duration {
	return s.keys[kind].ttl
}

// IssueAccessToken signs a short-lived access token for id.
func (s *Service) IssueAccessToken(id Identity) (string, error) {
	return s.Issue(id, KindAccess)
}

// IssueRefreshToken signs a long-lived refresh token for id.
func (s *Service) IssueRefreshToken(id Identity) (string, error) {
	return s.Issue(id, KindRefresh)
}

// Issue signs a token of the given kind.
func (s *Service) Issue(id Identity, kind Kind) (string, error) {
	key, ok := s.keys[kind]
	if !ok {
		return "", fmt.Errorf("unknown token kind %q", kind)
	}
	if id.UserID == "" {
		return "", errors.New("token subject must not be empty")
	}

	now := s.now()
	claims := Claims{
		Email:    id.Email,
		Username: id.Username,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(key.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key.secret)
}

// Verify checks signature, expiry and kind. Every failure wraps ErrInvalidToken.
func (s *Service) Verify(tokenString string, kind Kind) (*Claims, error) {
	key, ok := s.keys[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidToken, kind)
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return key.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, kind, claims.Kind)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// Rotate verifies a refresh token and issues a new access token carrying the
// same identity. The identity comes from the refresh token itself, and no
// new refresh token is issued.
func (s *Service) Rotate(refreshToken string) (string, *Claims, error) {
	claims, err := s.Verify(refreshToken, KindRefresh)
	if err != nil {
		return "", nil, err
	}
	access, err := s.IssueAccessToken(claims.Identity())
	if err != nil {
		return "", nil, err
	}
	return access, claims, nil
}
