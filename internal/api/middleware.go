package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fastprodman/topup/internal/auth"
	"github.com/fastprodman/topup/internal/infra/logging"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type principalKey struct{}

// RequestLogger tags every request with an id, stores a request-scoped logger in
// the context and logs the completed request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, requestID)

		log := slog.Default().With(
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), log)))

		log.Info("request completed",
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// TokenParser is the token half of the authenticator.
type TokenParser interface {
	ParseToken(raw string) (auth.Principal, error)
}

// Authenticate requires a valid bearer token and stores the caller in the context.
func Authenticate(tp TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
				writeError(w, r, http.StatusUnauthorized, "bearer token required")
				return
			}

			p, err := tp.ParseToken(strings.TrimSpace(token))
			if err != nil {
				logging.FromContext(r.Context()).Warn("invalid token", slog.Any("error", err))
				writeError(w, r, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey{}, p)
			ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With(slog.String("account_id", p.AccountID)))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireOperator rejects callers without the operator role.
func RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r.Context())
		if !ok || !p.IsOperator() {
			writeError(w, r, http.StatusForbidden, "operator role required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func principalFrom(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(auth.Principal)
	return p, ok
}
