package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MaezenDigital/Enemamar-backend/internal/repository"
	"github.com/MaezenDigital/Enemamar-backend/internal/service"
)

// respondError maps service errors onto the wire. Unclassified errors
// become an opaque 500 so internals never leak.
func respondError(c *gin.Context, err error) {
	var apiErr *service.APIError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.Status, gin.H{"error": apiErr.Code, "error_description": apiErr.Description})
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Something went wrong."})
}

func respondInvalidPayload(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid payload."})
}

// pagedResponse is the envelope for list endpoints.
type pagedResponse struct {
	Data     any `json:"data"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

func respondPage(c *gin.Context, data any, total int, params repository.ListParams) {
	params = params.Normalize()
	c.JSON(http.StatusOK, pagedResponse{
		Data:     data,
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	})
}

// listParams reads pagination and filtering from the query string.
func listParams(c *gin.Context) repository.ListParams {
	params := repository.ListParams{
		Search: c.Query("search"),
		Filter: c.Query("filter"),
	}
	params.Page = queryInt(c, "page", 1)
	params.PageSize = queryInt(c, "page_size", 10)
	return params.Normalize()
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// pathID parses an int64 path parameter. The second return reports
// whether the parameter was a valid ID.
func pathID(c *gin.Context, name string) (int64, bool) {
	value, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || value <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid " + name + "."})
		return 0, false
	}
	return value, true
}
