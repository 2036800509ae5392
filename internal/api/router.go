package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ulule/limiter/v3"
)

// NewRouter constructs a chi router with all API endpoints registered.
// submitLimiter may be nil to disable throttling of deposit submissions. An empty
// allowedOrigins disables CORS.
func NewRouter(h *HandlerProvider, submitLimiter *limiter.Limiter, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/register", h.RegisterHandler)
	r.Post("/login", h.LoginHandler)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(h.auth))

		r.With(optional(submitLimiter)).Post("/deposits", h.SubmitDepositHandler)
		r.Get("/deposits/{depositId}/status", h.PollStatusHandler)
		r.With(RequireOperator).Post("/deposits/{depositId}/settle", h.SettleHandler)

		r.Get("/accounts/{accountId}/balance", h.GetBalanceHandler)
		r.Get("/accounts/{accountId}/deposits", h.ListDepositsHandler)
	})

	return r
}

func optional(l *limiter.Limiter) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	return RateLimit(l)
}
