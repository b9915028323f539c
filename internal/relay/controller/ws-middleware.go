package controller

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime"
	"time"

	"github.com/streamhive/watchparty/pkg/ctxlogger"
	"github.com/streamhive/watchparty/pkg/wsrouter"
)

func (c controller) wsRequestIdMw(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) error {
		ctx = ctxlogger.AppendCtx(ctx, slog.String("ws_request_id", c.generateTimeBasedId()))
		return next(ctx, payload)
	}
}

func (c controller) loggerWSMw(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) error {
		event := wsrouter.GetEventFromCtx(ctx)
		ctx = ctxlogger.AppendCtx(ctx, slog.String("event", event))
		c.logger.DebugContext(ctx, "websocket event received", "size", len(payload))

		start := time.Now()

		err := next(ctx, payload)

		elapsed := time.Since(start)
		c.metrics.events.WithLabelValues(event).Inc()
		c.metrics.duration.WithLabelValues(event).Observe(elapsed.Seconds())
		if err != nil {
			c.metrics.failures.WithLabelValues(event).Inc()
		}

		c.logger.DebugContext(ctx, "websocket event handled",
			"processing_time_us", elapsed.Microseconds(),
			"goroutines", runtime.NumGoroutine(),
		)

		return err
	}
}
