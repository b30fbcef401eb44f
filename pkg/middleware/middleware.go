// Package middleware holds the gin chain of the booking API: request scope,
// access logging, recovery, auth, rate limiting, validation, metrics and
// server spans. Failures are rendered with the api.Envelope shape.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/palletspace/booking-service/pkg/api"
	"github.com/palletspace/booking-service/pkg/logging"
)

// Config selects the base chain installed by Setup
type Config struct {
	Logger         *logging.Logger
	ServiceName    string
	EnableCORS     bool
	TrustedProxies []string
}

func DefaultConfig(serviceName string, logger *logging.Logger) *Config {
	return &Config{Logger: logger, ServiceName: serviceName, EnableCORS: true}
}

// Setup installs the chain every route shares. Recovery runs first so a
// panic anywhere below still produces an envelope.
func Setup(router *gin.Engine, config *Config) {
	InitValidator()

	if len(config.TrustedProxies) > 0 {
		if err := router.SetTrustedProxies(config.TrustedProxies); err != nil {
			config.Logger.WithError(err).Warn("Ignoring trusted proxy list")
		}
	}

	chain := []gin.HandlerFunc{
		Recovery(config.Logger),
		RequestID(),
		CorrelationID(),
		Logger(config.Logger),
		InputSanitizer(),
	}
	if config.EnableCORS {
		chain = append(chain, CORS())
	}
	router.Use(append(chain, ContentType())...)
}

var (
	corsMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}, ", ")
	corsHeaders = strings.Join([]string{
		"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", HeaderRequestID, HeaderCorrelationID,
	}, ", ")
	corsExposed = strings.Join([]string{HeaderRequestID, HeaderCorrelationID}, ", ")
)

// CORS lets the marketplace frontend call the API from another origin.
// Preflight requests are answered here and never reach a handler.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", corsMethods)
		h.Set("Access-Control-Allow-Headers", corsHeaders)
		h.Set("Access-Control-Expose-Headers", corsExposed)
		h.Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// HealthCheck reports liveness. It never touches a dependency.
func HealthCheck(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	}
}

// ReadinessCheck reports 503 while check fails
func ReadinessCheck(serviceName string, check func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "ready", "service": serviceName}
		status := http.StatusOK
		if err := check(); err != nil {
			body["status"], body["error"] = "not ready", err.Error()
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, body)
	}
}

func NoRoute() gin.HandlerFunc {
	return envelopeFor(http.StatusNotFound, "ROUTE_NOT_FOUND", "The requested resource was not found")
}

func NoMethod() gin.HandlerFunc {
	return envelopeFor(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "The request method is not supported for this resource")
}

func envelopeFor(status int, code, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(status, api.Fail(code, message, nil, GetRequestID(c)))
	}
}
