package handler

import (
	"net/http"

	"stockroom/pkg/apperror"
	"stockroom/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError maps a domain error kind to an HTTP status and renders the
// standard error envelope.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperror.KindOf(err) {
	case apperror.KindNotFound:
		status = http.StatusNotFound
	case apperror.KindValidation:
		status = http.StatusBadRequest
	case apperror.KindInvalidState, apperror.KindInsufficientStock:
		status = http.StatusConflict
	}
	c.JSON(status, response.Error(status, err.Error()))
}
