package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderflow/internal/server/http/dto"
)

// Responder writes envelopes carrying the configured locale.
type Responder struct {
	locale string
}

func NewResponder(locale string) Responder {
	if locale == "" {
		locale = "en"
	}
	return Responder{locale: locale}
}

func (r Responder) Success(c *gin.Context, status int, message string, data any) {
	c.JSON(status, dto.Envelope{
		Success: true,
		Status:  status,
		Locale:  r.locale,
		Message: message,
		Data:    data,
	})
}

func (r Responder) Error(c *gin.Context, status int, message string, errs any) {
	c.AbortWithStatusJSON(status, dto.Envelope{
		Success: false,
		Status:  status,
		Locale:  r.locale,
		Message: message,
		Errors:  errs,
	})
}
