// Package logger builds the service's *slog.Logger.
//
// Loggers are configured with functional options or from a Config loaded from
// the environment. Request-scoped values such as the request id or the caller
// identity are attached to every record through ContextExtractors, so handlers
// only need to log with a context:
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "quotakit"),
//	    logger.WithContextExtractors(requestid.LoggerExtractor(), identity.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "entitlement checked", logger.Feature("caption"), logger.Verdict("allow", ""))
package logger
