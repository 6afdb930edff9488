package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/finfetch/internal/domain/dto"
	"github.com/guttosm/finfetch/internal/domain/models"
)

// ErrorHandler renders the last error attached with c.Error when the handler
// did not write a response itself.
//
// Behavior:
//   - Runs the rest of the chain first, then inspects c.Errors.
//   - Does nothing when there are no errors or a response was already written.
//   - Keeps the status already set on the writer when it is an error status; otherwise uses 500.
//   - Writes dto.ErrorResponse with Kind derived from the error's domain sentinel.
//
// Parameters:
//   - c (*gin.Context): the request context.
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}
	err := c.Errors.Last().Err
	status := c.Writer.Status()
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	resp := dto.NewErrorResponse(http.StatusText(status), err)
	resp.Kind = kindOf(err)
	c.AbortWithStatusJSON(status, resp)
}

// AbortWithError stops the chain and writes the standard error body.
func AbortWithError(c *gin.Context, status int, message string, err error) {
	resp := dto.NewErrorResponse(message, err)
	resp.Kind = kindOf(err)
	c.AbortWithStatusJSON(status, resp)
}

func kindOf(err error) string {
	if err == nil {
		return ""
	}
	if k := models.ErrorKind(err); k != "error" {
		return k
	}
	return ""
}
