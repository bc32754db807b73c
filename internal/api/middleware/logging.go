package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// LoggingMiddleware is a middleware for logging commands and their outcome
type LoggingMiddleware struct{}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware() LoggingMiddleware {
	return LoggingMiddleware{}
}

// Handle handles the logging middleware
func (m LoggingMiddleware) Handle(next Handler) Handler {
	return func(ctx context.Context, logger *slog.Logger, request Request) (interface{}, error) {
		startTime := time.Now()
		logger.Info("COMMAND", "command", request.Command, "flags", maskSensitiveFlags(request.Flags))

		result, err := next(ctx, logger, request)

		if err != nil {
			logger.Info("ERROR", "command", request.Command, "error", err)
		}
		logger.Info("RESULT", "command", request.Command, "ok", err == nil, "duration", time.Since(startTime))
		return result, err
	}
}

// maskSensitiveFlags masks flags that may carry credentials
func maskSensitiveFlags(flags map[string]string) map[string]string {
	masked := make(map[string]string, len(flags))
	for k, v := range flags {
		masked[k] = v
	}

	sensitive := []string{"dsn", "password", "secret"}
	for k, v := range masked {
		if v == "" {
			continue
		}
		for _, s := range sensitive {
			if strings.Contains(strings.ToLower(k), s) {
				masked[k] = "***"
			}
		}
	}
	return masked
}
