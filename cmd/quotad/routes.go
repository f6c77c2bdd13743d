package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/quotakit/pkg/httpserver"
	"github.com/dmitrymomot/quotakit/pkg/requestid"
)

func (a *app) router(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestid.Middleware)

	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(a.log, cfg.ReadyTimeout, a.checks))
	r.Handle("/metrics", promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Use(a.resolver.Middleware)

		r.Get("/usage/{feature}", a.gate.UsageHandler("feature"))
		if cfg.ClaimAnonymous {
			r.Post("/usage/claim", a.gate.ClaimHandler())
		}

		r.Route("/tools", func(r chi.Router) {
			for _, feature := range a.registry.Features() {
				r.With(a.gate.Metered(feature)).Post("/"+feature, toolHandler(a.op, feature, a.log))
			}
		})
	})
	return r
}
