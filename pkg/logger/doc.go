// Package logger builds *slog.Logger values for meterkit services and
// provides attribute helpers that keep key names consistent.
//
// New applies functional options. Loggers built with WithContextExtractors
// append attributes pulled from the context of each call, such as the
// request ID set by the HTTP transport.
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "meterd"),
//		logger.WithLevelName(cfg.LogLevel),
//	)
//	log.WarnContext(ctx, "usage read failed, allowing request",
//		logger.UserID(userID),
//		logger.TierID(tierID),
//		logger.Error(err),
//	)
//
// Helpers such as Error, UserID and ChargeID return an empty attribute for
// nil or empty input, so they can be passed unconditionally.
package logger
