// Package httpserver runs an http.Handler until the context is cancelled or
// the process receives SIGINT/SIGTERM, then shuts it down gracefully.
//
//	srv := httpserver.New(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// LivenessHandler and ReadinessHandler serve the probe endpoints.
package httpserver
