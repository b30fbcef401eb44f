package logging

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// Event records a business event such as a created booking
func (l *Logger) Event(ctx context.Context, eventType string, data map[string]any) {
	l.WithContext(ctx).Info("Business event", flatten(data, "eventType", eventType)...)
}

// Audit records who changed what on a warehouse or booking
func (l *Logger) Audit(ctx context.Context, action, resource, resourceID, actorID string, details map[string]any) {
	l.WithContext(ctx).Info("Audit event", flatten(details,
		"auditAction", action,
		"resource", resource,
		"resourceId", resourceID,
		"actorId", actorID,
	)...)
}

func (l *Logger) PriceCalculated(ctx context.Context, warehouseID, bookingType string, quantity int, total string, duration time.Duration) {
	l.WithContext(ctx).Debug("Price calculated",
		"warehouseId", warehouseID,
		"bookingType", bookingType,
		"quantity", quantity,
		"total", total,
		"durationMs", duration.Milliseconds(),
	)
}

func (l *Logger) StatusTransition(ctx context.Context, bookingID, from, to, actor string) {
	l.WithContext(ctx).Info("Booking status changed", "bookingId", bookingID, "from", from, "to", to, "actor", actor)
}

// HTTPRequest logs server errors at error and client errors at warn
func (l *Logger) HTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration, clientIP, userAgent string) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	l.WithContext(ctx).Log(ctx, level, "HTTP request",
		"method", method,
		"path", path,
		"status", status,
		"durationMs", duration.Milliseconds(),
		"clientIP", clientIP,
		"userAgent", userAgent,
	)
}

// KafkaPublish is debug on success so steady traffic stays quiet
func (l *Logger) KafkaPublish(ctx context.Context, topic, eventType string, success bool, duration time.Duration) {
	level := slog.LevelDebug
	if !success {
		level = slog.LevelError
	}
	l.WithContext(ctx).Log(ctx, level, "Kafka publish",
		"topic", topic,
		"eventType", eventType,
		"success", success,
		"durationMs", duration.Milliseconds(),
	)
}

func (l *Logger) Panic(ctx context.Context, recovered any) {
	buf := make([]byte, 4096)
	buf = buf[:runtime.Stack(buf, false)]
	l.WithContext(ctx).Error("Panic recovered", "panic", recovered, "stack", string(buf))
}
