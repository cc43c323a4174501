package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/martijn/harvestd/internal/api/dto"
	"github.com/martijn/harvestd/internal/core/repository"
	"github.com/martijn/harvestd/internal/core/service"
	"github.com/martijn/harvestd/internal/errors"
)

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// respondError maps service errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	var validation *service.ValidationError
	switch {
	case errors.As(err, &validation):
		abortWithError(c, http.StatusBadRequest, validation.Error())
	case errors.Is(err, repository.ErrInvalidFilter):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	default:
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, err.Error())
	}
}
