package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// statusFor pairs a sentinel error with the status and message it maps to.
type statusFor struct {
	err     error
	status  int
	message string
}

// respondError writes the response for the first sentinel the error matches,
// falling back to fallbackStatus and fallbackMessage for anything the handler
// does not recognize.
func respondError(c *gin.Context, err error, fallbackStatus int, fallbackMessage string, known ...statusFor) {
	for _, k := range known {
		if k.err != nil && errors.Is(err, k.err) {
			c.JSON(k.status, NewErrorResponse(c, k.message))
			return
		}
	}

	if fallbackStatus == 0 {
		fallbackStatus = http.StatusInternalServerError
	}
	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
