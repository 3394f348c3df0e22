package utils

import (
	"errors"
	"net/http"

	"envie2sortir-backend/apperr"
	"envie2sortir-backend/logger"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func RespondWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// RespondWithAppError maps service errors to HTTP responses. Unknown errors are logged and hidden.
func RespondWithAppError(c *gin.Context, err error) {
	if appErr, ok := apperr.As(err); ok {
		if appErr.Status >= http.StatusInternalServerError {
			logger.L().Error(appErr.Message, map[string]interface{}{
				"path":  c.Request.URL.Path,
				"code":  string(appErr.Code),
				"error": appErr.Err,
			})
		}
		body := gin.H{"error": appErr.Message}
		if len(appErr.Details) > 0 {
			body["details"] = appErr.Details
		}
		c.AbortWithStatusJSON(appErr.Status, body)
		return
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		RespondWithError(c, http.StatusNotFound, "Resource not found")
		return
	}

	logger.L().Error("unhandled error", map[string]interface{}{
		"path":  c.Request.URL.Path,
		"error": err,
	})
	RespondWithError(c, http.StatusInternalServerError, "Internal server error")
}
