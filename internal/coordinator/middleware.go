package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey string

const ctxRequestID ctxKey = "request_id"
const ctxInstanceID ctxKey = "instance_id"
const requestIDHeader = "X-Request-ID"

func requestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxRequestID).(string); ok {
		return id
	}
	return ""
}

func instanceIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxInstanceID).(string); ok {
		return id
	}
	return ""
}

// requestIDMiddleware propagates an existing X-Request-ID or generates one,
// so coordinator logs can be correlated with an instance's own logs for
// the same call.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), ctxRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder captures the status code a handler wrote, for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs every request's method, path, status, duration,
// and trace id the way the teacher's handler/http.Logging does, minus the
// byte-count tracking this protocol's small JSON bodies don't need.
func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			span := trace.SpanFromContext(r.Context())
			logger.Info("coordinator request",
				slog.String("request_id", requestIDFromContext(r.Context())),
				slog.String("trace_id", span.SpanContext().TraceID().String()),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// recoverMiddleware turns a panicking handler into a 500 instead of
// crashing the coordinator process, matching handler/http.Recover.
func recoverMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("coordinator: panic recovered",
						slog.String("request_id", requestIDFromContext(r.Context())),
						slog.String("path", r.URL.Path),
						slog.Any("panic", rec),
						slog.String("stack", string(debug.Stack())))
					respondError(w, http.StatusInternalServerError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// publicPaths lists endpoints reachable without a bearer token: pure
// monitoring surfaces with no slot-table side effects.
var publicPaths = map[string]bool{
	"/health": true,
}

// authMiddleware enforces a JWT bearer token on every endpoint except
// publicPaths, the way handler/http/auth.Authz enforces one for this
// module's protected routes — simplified to a single "instance" role,
// since every caller here is a trusted crawler instance rather than a
// human with differentiated permissions.
func authMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			instanceID, err := validateBearerToken(r.Header.Get("Authorization"), secret)
			if err != nil {
				respondError(w, http.StatusUnauthorized, fmt.Sprintf("unauthorized: %v", err))
				return
			}

			ctx := context.WithValue(r.Context(), ctxInstanceID, instanceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validateBearerToken(authz string, secret []byte) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return "", fmt.Errorf("missing bearer token")
	}
	tokenString := strings.TrimPrefix(authz, prefix)
	tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !tok.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("token missing subject")
	}
	return sub, nil
}

// IssueInstanceToken signs a long-lived JWT identifying instanceID as the
// bearer for every coordinator call it makes. No binary in this module
// calls it and no HTTP endpoint issues tokens; instances do not
// self-serve them — there is no human login flow to mirror here,
// unlike the teacher's /auth/token endpoint.
func IssueInstanceToken(secret []byte, instanceID string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": instanceID,
		"exp": time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}
