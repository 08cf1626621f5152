package route

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"eventfair/src-server/jwt"
	"eventfair/src-server/metric"
	"eventfair/src-server/model"
	"eventfair/src-server/utils"
)

type IdentityCtxKeyType string

const (
	IdentityCtxKey          IdentityCtxKeyType = "identity"
	SessionTokenCookieName  string             = "session-token"
	AuthorizationBearerType string             = "Bearer "
)

// Resolve the caller from a bearer token or the session cookie, refresh the
// reference copy of the user, and pass the identity down in the context.
func AuthMiddleware(as *utils.AppState, next func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		token := func() string {
			if header := r.Header.Get("Authorization"); strings.HasPrefix(header, AuthorizationBearerType) {
				return strings.TrimSpace(strings.TrimPrefix(header, AuthorizationBearerType))
			}
			if sessionCookie, err := r.Cookie(SessionTokenCookieName); err == nil {
				return strings.TrimSpace(sessionCookie.Value)
			}
			return ""
		}()
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		identity, err := jwt.Decode(token, as.Config.GetJWTSecret())
		if err != nil {
			slog.Debug("rejected session token", "error", err)
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if result := as.Service.UpsertUser(r.Context(), &model.User{
			ID:    identity.UserID,
			Name:  identity.Name,
			Email: identity.Email,
			Image: identity.Picture,
			Role:  model.Role(identity.Role),
		}); !result.Success {
			writeError(w, http.StatusInternalServerError, result.Error)
			return
		}

		ctx := context.WithValue(r.Context(), IdentityCtxKey, identity)
		next(w, r.WithContext(ctx))
	}
}

// AuthMiddleware plus the ADMIN role.
func AdminMiddleware(as *utils.AppState, next func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
	return AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityFrom(r)
		if !ok || model.Role(identity.Role) != model.ROLE_ADMIN {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next(w, r)
	})
}

func identityFrom(r *http.Request) (*jwt.Payload, bool) {
	identity, ok := r.Context().Value(IdentityCtxKey).(*jwt.Payload)
	return identity, ok && identity != nil
}

// Captures the written status for logging.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Log every request and record its duration under the route pattern, so the
// metric labels stay bounded.
func LoggingMiddleware(pattern string, observe func(method string, pattern string, status int, duration time.Duration), next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrapResponseWriter(w)
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		if observe != nil {
			observe(r.Method, pattern, wrapped.status, duration)
		}
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", duration,
		)
	})
}

// Turn a panicking handler into a 500 instead of a dropped connection.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("panic recovered",
					"error", err,
					"trace", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "Internal Server Error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Register handler under pattern with logging and metrics.
func handle(muxer *http.ServeMux, pattern string, handler http.HandlerFunc) {
	muxer.Handle(pattern, LoggingMiddleware(pattern, metric.HTTPObserver(), handler))
}
