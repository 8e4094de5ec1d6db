package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/Shahil0511/OakMirror/pkg/errors"
	"github.com/Shahil0511/OakMirror/pkg/httputil"
	"github.com/Shahil0511/OakMirror/pkg/logger"
)

type contextKeyType string

const identityKey contextKeyType = "identity"

// Claims is the part of a verified token the gate needs.
type Claims struct {
	UserID string
	Role   string
}

// Identity is the authenticated caller for the lifetime of one request.
type Identity struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// TokenValidator verifies a raw bearer token and returns its claims.
type TokenValidator func(ctx context.Context, token string) (*Claims, error)

// IdentityResolver loads the current profile for a token subject. It must
// return an error matching apperrors.ErrUserNotFound or apperrors.ErrNotFound
// when the subject no longer exists.
type IdentityResolver func(ctx context.Context, userID string) (*Identity, error)

// Authenticate verifies the bearer token on every request, resolves the
// subject and stores the resulting Identity in the context. Any token problem
// is a uniform 401; the specific cause is only logged. When resolve is nil the
// identity is built from the claims alone.
func Authenticate(validate TokenValidator, resolve IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logger.FromContext(ctx)

			token, ok := bearerToken(r)
			if !ok {
				writeUnauthenticated(w, "authentication required")
				return
			}

			claims, err := validate(ctx, token)
			if err != nil {
				log.DebugContext(ctx, "token rejected", slog.String("reason", err.Error()))
				writeUnauthenticated(w, "invalid or expired token")
				return
			}

			identity := &Identity{ID: claims.UserID, Role: claims.Role}
			if resolve != nil {
				resolved, err := resolve(ctx, claims.UserID)
				switch {
				case errors.Is(err, apperrors.ErrUserNotFound), errors.Is(err, apperrors.ErrNotFound):
					log.InfoContext(ctx, "token subject no longer exists", slog.String("user_id", claims.UserID))
					writeUnauthenticated(w, "user not found")
					return
				case err != nil:
					httputil.WriteError(w, r, err, log)
					return
				}
				identity = resolved
				// The role stays what it was when the token was issued.
				identity.Role = claims.Role
			}

			ctx = WithIdentity(ctx, identity)
			ctx = logger.WithUserID(ctx, identity.ID)
			ctx = logger.NewContext(ctx, log.With(slog.String("user_id", identity.ID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects callers whose role is not in the allow-list with a 403.
// Roles compare case-insensitively. It must run after Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[strings.ToLower(role)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				writeUnauthenticated(w, "authentication required")
				return
			}
			if _, ok := allowed[strings.ToLower(identity.Role)]; !ok {
				httputil.WriteFailure(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity returns a context carrying the caller identity.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the identity stored by Authenticate.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*Identity)
	return identity, ok && identity != nil
}

// UserIDFromContext returns the authenticated user ID, or "".
func UserIDFromContext(ctx context.Context) string {
	if identity, ok := IdentityFromContext(ctx); ok {
		return identity.ID
	}
	return ""
}

// RoleFromContext returns the authenticated user role, or "".
func RoleFromContext(ctx context.Context) string {
	if identity, ok := IdentityFromContext(ctx); ok {
		return identity.Role
	}
	return ""
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeUnauthenticated(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="oakmirror"`)
	httputil.WriteFailure(w, http.StatusUnauthorized, "UNAUTHENTICATED", message)
}
