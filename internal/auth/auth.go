// Package auth verifies Directus access tokens and carries the caller through
// the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing access token")
	ErrInvalidToken = errors.New("invalid access token")
	ErrExpiredToken = errors.New("access token expired")
)

// Config is read from the same env vars Directus itself uses.
type Config struct {
	Secret     string `env:"DIRECTUS_SECRET,required"`
	Issuer     string `env:"DIRECTUS_TOKEN_ISSUER"    envDefault:"directus"`
	CookieName string `env:"DIRECTUS_TOKEN_COOKIE"    envDefault:"access_token"`
}

func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse auth env: %w", err)
	}
	cfg.Secret = strings.TrimSpace(cfg.Secret)
	if cfg.Secret == "" {
		return Config{}, errors.New("DIRECTUS_SECRET is required")
	}
	return cfg, nil
}

// User is the authenticated CMS user.
type User struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	AdminAccess bool   `json:"admin_access"`
}

type directusClaims struct {
	jwt.RegisteredClaims
	ID          string `json:"id"`
	Role        string `json:"role"`
	AppAccess   bool   `json:"app_access"`
	AdminAccess bool   `json:"admin_access"`
}

// Verifier checks HS256 tokens signed with the Directus secret.
type Verifier struct {
	cfg Config
	now func() time.Time
}

func NewVerifier(cfg Config, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "access_token"
	}
	return &Verifier{cfg: cfg, now: now}
}

// Verify parses token and returns its user.
func (v *Verifier) Verify(token string) (*User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	var claims directusClaims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}

	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(v.cfg.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if strings.TrimSpace(claims.ID) == "" {
		return nil, ErrInvalidToken
	}
	return &User{ID: claims.ID, Role: claims.Role, AdminAccess: claims.AdminAccess}, nil
}

// Issue signs a token for userID the way Directus does. Used by dev tooling
// and tests.
func (v *Verifier) Issue(userID, role string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := directusClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		ID:        userID,
		Role:      role,
		AppAccess: true,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(v.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// TokenFromRequest reads a bearer token from the Authorization header, falling
// back to the access token cookie.
func (v *Verifier) TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(v.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}

type ctxKey int

const (
	userKey ctxKey = iota
	organizerKey
)

func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFrom returns the authenticated user, or nil outside authenticated routes.
func UserFrom(ctx context.Context) *User {
	u, _ := ctx.Value(userKey).(*User)
	return u
}

// WithOrganizerID stores the organizer the caller acts for.
func WithOrganizerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, organizerKey, id)
}

func OrganizerIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(organizerKey).(string)
	return id
}
