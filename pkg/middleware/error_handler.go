package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/palletspace/booking-service/pkg/api"
	"github.com/palletspace/booking-service/pkg/errors"
	"github.com/palletspace/booking-service/pkg/logging"
)

// ErrorResponder renders handler errors as failure envelopes and logs them,
// client mistakes at warn and server faults at error.
type ErrorResponder struct {
	ctx    *gin.Context
	logger *logging.Logger
}

func NewErrorResponder(ctx *gin.Context, logger *logging.Logger) *ErrorResponder {
	return &ErrorResponder{ctx: ctx, logger: logger}
}

// RespondWithError maps domain and application errors to their HTTP form
func (r *ErrorResponder) RespondWithError(err error) {
	r.RespondWithAppError(errors.MapDomainError(err))
}

func (r *ErrorResponder) RespondWithAppError(appErr *errors.AppError) {
	requestID := GetRequestID(r.ctx)
	r.log(appErr, requestID)
	r.ctx.JSON(appErr.HTTPStatus, api.Fail(appErr.Code, appErr.Message, appErr.Details, requestID))
}

func (r *ErrorResponder) RespondBadRequest(message string) {
	r.RespondWithAppError(errors.ErrBadRequest(message))
}

func (r *ErrorResponder) log(appErr *errors.AppError, requestID string) {
	if r.logger == nil {
		return
	}
	req := r.ctx.Request

	level := slog.LevelWarn
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		level = slog.LevelError
	}

	log := r.logger.With(
		"code", appErr.Code,
		"status", appErr.HTTPStatus,
		"method", req.Method,
		"path", req.URL.Path,
		"requestId", requestID,
	)
	if appErr.Err != nil {
		log = log.WithError(appErr.Err)
	}
	if len(appErr.Details) > 0 {
		log = log.With("details", appErr.Details)
	}
	log.Log(req.Context(), level, appErr.Message)
}

// AbortWithAppError stops the chain with a failure envelope. Middleware uses
// it where no handler logger is in scope.
func AbortWithAppError(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, api.Fail(appErr.Code, appErr.Message, appErr.Details, GetRequestID(c)))
}
