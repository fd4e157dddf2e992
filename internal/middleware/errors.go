package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/tickapi/internal/domain/dto"
)

// ErrorHandler turns errors attached with c.Error() into a JSON 500 when the
// handler did not write a response itself.
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("internal server error", nil))
}

// AbortWithError records err on the context (for RequestLogger) and aborts with
// a JSON ErrorResponse carrying message and err's text.
func AbortWithError(c *gin.Context, status int, message string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(message, err))
}
