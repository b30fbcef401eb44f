package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the body shape of every API response
type Envelope struct {
	Success   bool              `json:"success"`
	Data      any               `json:"data,omitempty"`
	Error     string            `json:"error,omitempty"`
	Code      string            `json:"code,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

// OK writes a successful envelope with the given status
func OK(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// Created writes a 201 envelope
func Created(c *gin.Context, data any) {
	OK(c, http.StatusCreated, data)
}

// Fail builds an error envelope
func Fail(code, message string, details map[string]string, requestID string) Envelope {
	return Envelope{
		Success:   false,
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: requestID,
	}
}
