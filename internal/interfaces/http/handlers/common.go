// Package handlers implements the REST endpoints over the application
// services.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vigiamx/satavisos/internal/interfaces/http/middleware"
	"github.com/vigiamx/satavisos/pkg/errors"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, common.APIResponse[any]{
		Success:   true,
		Data:      data,
		RequestID: middleware.RequestIDFrom(c),
		Timestamp: time.Now().UTC(),
	})
}

func respondPage(c *gin.Context, data any, page, pageSize int, total int64) {
	c.JSON(http.StatusOK, common.APIResponse[any]{
		Success: true,
		Data:    data,
		Pagination: &common.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
		RequestID: middleware.RequestIDFrom(c),
		Timestamp: time.Now().UTC(),
	})
}

// respondError maps domain error codes onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	detail := &common.ErrorDetail{
		Code:    string(code),
		Message: err.Error(),
	}
	if appErr, ok := err.(*errors.AppError); ok {
		detail.Message = appErr.Message
		if appErr.Detail != "" {
			detail.Details = map[string]interface{}{"detail": appErr.Detail}
		}
	}

	c.JSON(status, common.APIResponse[any]{
		Success:   false,
		Error:     detail,
		RequestID: middleware.RequestIDFrom(c),
		Timestamp: time.Now().UTC(),
	})
}

func respondBadRequest(c *gin.Context, msg string) {
	respondError(c, errors.New(errors.ErrCodeBadRequest, msg))
}

// pageParams reads page / page_size query parameters with sane bounds.
func pageParams(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if pageSize < 1 {
		pageSize = 50
	}
	return page, pageSize
}
