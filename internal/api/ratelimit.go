package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fastprodman/topup/internal/config"
	"github.com/fastprodman/topup/internal/infra/logging"
	"github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// NewSubmitLimiter builds an in-process limiter for deposit submissions. It
// returns nil when throttling is disabled.
func NewSubmitLimiter(cfg config.RateLimitConfig) (*limiter.Limiter, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", cfg.Rate, err)
	}

	return limiter.New(memory.NewStore(), rate), nil
}

// RateLimit throttles per authenticated account, falling back to client IP.
func RateLimit(l *limiter.Limiter) func(http.Handler) http.Handler {
	mw := limiterstdlib.NewMiddleware(l,
		limiterstdlib.WithKeyGetter(func(r *http.Request) string {
			if p, ok := principalFrom(r.Context()); ok {
				return "account:" + p.AccountID
			}
			return "ip:" + l.GetIPKey(r)
		}),
		limiterstdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			logging.FromContext(r.Context()).Warn("rate limit exceeded")
			writeError(w, r, http.StatusTooManyRequests, "too many requests")
		}),
		limiterstdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			logging.FromContext(r.Context()).Error("rate limit check failed", slog.Any("error", err))
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}),
	)

	return mw.Handler
}
