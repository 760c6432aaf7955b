package unifiedllm

import (
	"context"
	"log/slog"
	"time"
)

// LoggingMiddleware logs every provider call at debug level and failures at
// warn level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req Request, next func(context.Context, Request) (*Response, error)) (*Response, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		elapsed := time.Since(start)
		if err != nil {
			logger.Warn("model call failed",
				"provider", req.Provider,
				"model", req.Model,
				"duration", elapsed,
				"retryable", IsRetryable(err),
				"error", err,
			)
			return nil, err
		}
		logger.Debug("model call completed",
			"provider", req.Provider,
			"model", resp.Model,
			"duration", elapsed,
			"output_tokens", resp.Usage.OutputTokens,
		)
		return resp, nil
	}
}
