package middleware

import (
	"net/http"

	"teamfit-platform/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// Error maps domain errors attached to the gin context onto HTTP responses.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		err := c.Errors.Last()
		if err == nil {
			return
		}

		if v, ok := err.Err.(errutil.BaseError); ok {
			c.JSON(v.Code.HTTPStatus(), v.JSON())
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    errutil.StatusInternal,
				"message": err.Error(),
			},
		})
	}
}
