package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-passwordless/internal/application/auth"
	"github.com/go-passwordless/internal/config"
	"github.com/go-passwordless/internal/transport/http/handler"
	appmiddleware "github.com/go-passwordless/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds the application router. The returned stop function ends
// the rate limiter's cleanup goroutine.
func NewRouter(cfg *config.Config, deps *Deps) (http.Handler, func()) {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	trusted, err := appmiddleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		slog.Warn("ignoring trusted proxies, keying rate limit on peer address", "err", err)
		trusted = nil
	}
	// Applied to the endpoints that send a code.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, trusted...)

	healthH := handler.NewHealthHandler()
	subjectH := handler.NewSubjectHandler(deps.Audit)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		r.Route("/auth", func(r chi.Router) {
			for _, ctrl := range []auth.Controller{deps.EmailAuth, deps.SMSAuth} {
				if ctrl == nil {
					continue
				}
				h := handler.NewAuthHandler(ctrl)
				name := ctrl.Channel().Name
				r.With(sensitiveRL.Limit).Post("/"+name, h.Authenticate)
				r.Post("/"+name+"/verify-code", h.VerifyCode)
				r.Post("/"+name+"/verify-token", h.VerifyToken)
			}

			// Verified tokens from either channel share one signing engine,
			// so one controller authorizes them all.
			if deps.EmailAuth != nil {
				r.Group(func(r chi.Router) {
					r.Use(appmiddleware.Auth(deps.EmailAuth))
					r.Get("/whoami", subjectH.Whoami)
					r.Get("/events", subjectH.Events)
				})
			}
		})
	})

	return r, sensitiveRL.Stop
}
