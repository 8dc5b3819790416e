package handler

import (
	"errors"
	"net/http"

	"fulfillment/internal/legacy"
	"fulfillment/internal/middleware"
	"fulfillment/internal/model"
	"fulfillment/pkg/latest"
	"fulfillment/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError maps a service error onto the response envelope.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *model.AppError
	if errors.As(err, &appErr) {
		status := statusForKind(appErr.Kind)
		c.JSON(status, response.ErrorWithCode(status, appErr.Error(), appErr.Code, appErr.Field))
		return
	}

	var statusErr *legacy.StatusError
	switch {
	case errors.As(err, &statusErr):
		c.JSON(http.StatusBadGateway, response.ErrorWithCode(http.StatusBadGateway, statusErr.Error(), "UPSTREAM_REJECTED", ""))
	case errors.Is(err, legacy.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, response.Error(http.StatusServiceUnavailable, err.Error()))
	case errors.Is(err, latest.ErrStale):
		c.JSON(http.StatusConflict, response.ErrorWithCode(http.StatusConflict, err.Error(), "SUPERSEDED", ""))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
	}
}

func statusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindState, model.KindConflict:
		return http.StatusConflict
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, err error) {
	if field, msg, ok := middleware.FirstInvalidField(err); ok {
		c.JSON(http.StatusBadRequest, response.ErrorWithCode(http.StatusBadRequest, field+": "+msg, "VALIDATION_FAILED", field))
		return
	}
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}
