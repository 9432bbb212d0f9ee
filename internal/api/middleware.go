package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Priya8975/event-console/internal/auth"
	"github.com/Priya8975/event-console/internal/domain"
)

type TokenVerifier interface {
	TokenFromRequest(r *http.Request) string
	Verify(token string) (*auth.User, error)
}

type OrganizerResolver interface {
	GetOrganizerByUser(ctx context.Context, userID string) (*domain.Organizer, error)
}

// Authenticate rejects requests without a valid Directus access token.
func Authenticate(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := v.Verify(v.TokenFromRequest(r))
			if err != nil {
				code := codeUnauthorized
				if errors.Is(err, auth.ErrExpiredToken) {
					code = codeTokenExpired
				}
				respondError(w, http.StatusUnauthorized, code, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

// ResolveOrganizer looks up the organizer profile of the authenticated
// user. With required set, users without one get a 403.
func ResolveOrganizer(orgs OrganizerResolver, required bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.UserFrom(r.Context())
			if user == nil {
				respondError(w, http.StatusUnauthorized, codeUnauthorized, auth.ErrMissingToken.Error())
				return
			}

			org, err := orgs.GetOrganizerByUser(r.Context(), user.ID)
			if err != nil {
				logger.Error("failed to resolve organizer", "error", err, "user_id", user.ID)
				respondError(w, http.StatusInternalServerError, codeInternalError, "failed to resolve organizer")
				return
			}
			if org == nil {
				if required {
					respondError(w, http.StatusForbidden, codeForbidden, domain.ErrNotOrganizer.Error())
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithOrganizerID(r.Context(), org.ID)))
		})
	}
}

// corsMiddleware allows the configured admin origins. "*" allows any.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAll = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			ok := allowAll
			if !ok {
				_, ok = allowed[origin]
			}
			if !ok {
				if r.Method == http.MethodOptions {
					respondError(w, http.StatusForbidden, codeForbidden, "origin not allowed")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				// Cookies only flow to an explicitly allowed origin.
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// organizerID returns the organizer resolved by ResolveOrganizer.
func organizerID(r *http.Request) string {
	return auth.OrganizerIDFrom(r.Context())
}

func userID(r *http.Request) string {
	if u := auth.UserFrom(r.Context()); u != nil {
		return u.ID
	}
	return ""
}
