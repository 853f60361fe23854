package helper

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"todoitems/internal/core/domain"
	"todoitems/internal/core/model/response"
)

func SendSuccess(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, data)
}

func SendNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func SendErrorMessage(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, response.ErrorResponse{
		Status:       statusCode,
		ErrorMessage: message,
	})
}

// SendError answers with the status and message of the *domain.TodoError in err's chain.
// It reports false, without writing, when err carries none.
func SendError(c *gin.Context, err error) bool {
	todoErr, ok := domain.AsTodoError(err)

	if !ok {
		return false
	}

	SendErrorMessage(c, todoErr.Status, todoErr.Message)
	return true
}

func SendInternalError(c *gin.Context) {
	SendErrorMessage(c, http.StatusInternalServerError, "Internal server error")
}

func SendNotFoundError(c *gin.Context, message string) {
	SendErrorMessage(c, http.StatusNotFound, message)
}

func SendTooManyRequests(c *gin.Context, message string) {
	SendErrorMessage(c, http.StatusTooManyRequests, message)
}
