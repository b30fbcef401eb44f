package idempotency

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/palletspace/booking-service/pkg/logging"
	"github.com/palletspace/booking-service/pkg/metrics"
)

const (
	DefaultMaxKeyLength = 255

	// DefaultLockTimeout releases a key whose first request never finished
	DefaultLockTimeout = 5 * time.Minute

	// DefaultRetentionPeriod is how long a booking creation can be replayed
	DefaultRetentionPeriod = 24 * time.Hour

	// DefaultMaxResponseSize caps what is cached per key; larger bodies are not replayed
	DefaultMaxResponseSize = 1 << 20
)

// Config wires the Idempotency-Key middleware in front of booking creation
type Config struct {
	ServiceName string
	Repository  KeyRepository
	Logger      *logging.Logger
	Metrics     *metrics.Metrics

	// RequireKey turns a missing header into a 400
	RequireKey bool

	// UserIDExtractor scopes keys to the caller so customers cannot collide
	UserIDExtractor func(*gin.Context) string

	MaxKeyLength    int
	LockTimeout     time.Duration
	RetentionPeriod time.Duration
	MaxResponseSize int
}

func DefaultConfig(serviceName string, repository KeyRepository, logger *logging.Logger) *Config {
	return &Config{
		ServiceName:     serviceName,
		Repository:      repository,
		Logger:          logger,
		MaxKeyLength:    DefaultMaxKeyLength,
		LockTimeout:     DefaultLockTimeout,
		RetentionPeriod: DefaultRetentionPeriod,
		MaxResponseSize: DefaultMaxResponseSize,
	}
}
