// Package logger builds log/slog loggers for the builder services.
//
// New applies functional options on top of production defaults (JSON, INFO,
// stdout). WithEnvironment switches to human-readable DEBUG output for
// development and tags every record with the service and environment names.
//
// Context extractors registered with WithContextExtractors run on every log
// call, so request-scoped values such as the request id appear on records
// emitted deep inside the quota and sandbox packages without threading a
// logger through each call:
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "builder"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.ErrorContext(ctx, "failed to terminate sandbox",
//		logger.SandboxID(id), logger.Error(err))
//
// The attribute helpers keep key names consistent across packages.
package logger
