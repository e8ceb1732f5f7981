package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-passwordless/internal/domain"
)

type contextKey string

const subjectKey contextKey = "subject"

// SubjectAuthorizer resolves a verified token to the address it was issued for.
type SubjectAuthorizer interface {
	AuthorizeSubject(token string) (string, error)
}

// Auth returns middleware that requires a verified Bearer token and injects
// its subject into the request context.
func Auth(authorizer SubjectAuthorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			subject, err := authorizer.AuthorizeSubject(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				if errors.Is(err, domain.ErrInternal) {
					slog.Error("authorize subject", "err", err)
					writeJSONError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), subjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext returns the verified subject set by Auth.
func SubjectFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectKey).(string)
	return s, ok && s != ""
}

// WithSubject stores subject the way Auth does. Used by tests of handlers
// that sit behind Auth.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}
