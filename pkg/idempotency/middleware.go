package idempotency

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/palletspace/booking-service/pkg/api"
	"github.com/palletspace/booking-service/pkg/logging"
)

const (
	// HeaderIdempotencyKey is the HTTP header carrying the key
	HeaderIdempotencyKey = "Idempotency-Key"

	// HeaderIdempotentReplay is set on responses served from the cache
	HeaderIdempotentReplay = "Idempotent-Replayed"

	// ContextKeyIdempotencyKeyID stores the key document id on the gin context
	ContextKeyIdempotencyKeyID = "idempotencyKeyId"

	codeKeyRequired       = "IDEMPOTENCY_KEY_REQUIRED"
	codeKeyInvalid        = "IDEMPOTENCY_KEY_INVALID"
	codeParameterMismatch = "IDEMPOTENCY_PARAMETER_MISMATCH"
	codeConcurrent        = "IDEMPOTENCY_CONCURRENT_REQUEST"
	codeStorage           = "IDEMPOTENCY_STORAGE_UNAVAILABLE"
)

// responseWriter captures the response so it can be replayed
type responseWriter struct {
	gin.ResponseWriter
	body       *bytes.Buffer
	statusCode int
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware returns a gin middleware that replays the stored response for a
// repeated Idempotency-Key. Attach it only to mutating routes.
func Middleware(config *Config) gin.HandlerFunc {
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.WithComponent("idempotency")

	return func(c *gin.Context) {
		key := NormalizeKey(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			if config.RequireKey {
				abort(c, http.StatusBadRequest, codeKeyRequired, "Idempotency-Key header is required for this operation")
				return
			}
			c.Next()
			return
		}

		if err := ValidateKey(key, config.MaxKeyLength); err != nil {
			abort(c, http.StatusBadRequest, codeKeyInvalid, fmt.Sprintf("invalid idempotency key: %v", err))
			return
		}

		var userID string
		if config.UserIDExtractor != nil {
			userID = config.UserIDExtractor(c)
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		}

		process(c, config, logger, key, userID, ComputeFingerprint(body))
	}
}

func process(c *gin.Context, config *Config, logger *logging.Logger, key, userID, fingerprint string) {
	ctx := c.Request.Context()
	log := logger.WithContext(ctx).WithFields(map[string]any{"key": key, "path": c.Request.URL.Path})
	now := time.Now().UTC()

	candidate := &Record{
		Key:                key,
		UserID:             userID,
		ServiceID:          config.ServiceName,
		RequestPath:        c.Request.URL.Path,
		RequestMethod:      c.Request.Method,
		RequestFingerprint: fingerprint,
		CreatedAt:          now,
		ExpiresAt:          now.Add(config.RetentionPeriod),
	}

	stored, isNew, err := config.Repository.AcquireLock(ctx, candidate)
	if err != nil {
		log.WithError(err).Error("Failed to acquire idempotency lock")
		config.Metrics.RecordIdempotency("error")
		abort(c, http.StatusServiceUnavailable, codeStorage, "idempotency storage is temporarily unavailable")
		return
	}

	if stored.RequestFingerprint != fingerprint {
		log.Warn("Idempotency key reused with a different body")
		config.Metrics.RecordIdempotency("mismatch")
		abort(c, http.StatusUnprocessableEntity, codeParameterMismatch,
			"request parameters differ from the original request with this idempotency key")
		return
	}

	if stored.IsCompleted() {
		log.Info("Replaying stored response", "statusCode", stored.ResponseCode)
		config.Metrics.RecordIdempotency("hit")
		for k, v := range stored.ResponseHeaders {
			c.Header(k, v)
		}
		c.Header(HeaderIdempotentReplay, "true")
		c.Data(stored.ResponseCode, "application/json; charset=utf-8", stored.ResponseBody)
		c.Abort()
		return
	}

	if !isNew && stored.IsLocked() {
		if lockAge := time.Since(*stored.LockedAt); lockAge < config.LockTimeout {
			config.Metrics.RecordIdempotency("conflict")
			abort(c, http.StatusConflict, codeConcurrent,
				"a request with this idempotency key is currently being processed")
			return
		}
		log.Info("Stale idempotency lock taken over")
	}

	keyID := stored.ID.Hex()
	c.Set(ContextKeyIdempotencyKeyID, keyID)
	config.Metrics.RecordIdempotency("miss")

	writer := &responseWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}, statusCode: http.StatusOK}
	c.Writer = writer

	c.Next()

	// Server failures are not cached so the client can retry with the same key.
	if writer.statusCode >= http.StatusInternalServerError {
		if err := config.Repository.ReleaseLock(ctx, keyID); err != nil {
			log.WithError(err).Error("Failed to release idempotency lock")
		}
		return
	}

	body := writer.body.Bytes()
	if config.MaxResponseSize > 0 && len(body) > config.MaxResponseSize {
		log.Warn("Response too large to cache", "size", len(body))
		body = []byte(fmt.Sprintf(`{"success":false,"error":"response too large to replay","size":%d}`, len(body)))
	}

	headers := make(map[string]string)
	for k, v := range c.Writer.Header() {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	if err := config.Repository.StoreResponse(ctx, keyID, writer.statusCode, body, headers); err != nil {
		log.WithError(err).Error("Failed to store idempotency response")
		config.Metrics.RecordIdempotency("error")
	}
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, api.Fail(code, message, nil, c.GetString("requestId")))
}
