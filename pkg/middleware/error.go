package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"licensure-verifier/pkg/errutil"
)

// Error translates errors attached to the gin context into JSON responses.
// Handlers report failures with c.Error(err) and return; the mapping from
// error class to HTTP status lives here, in one place.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil {
			return
		}

		if c.Writer.Written() {
			return
		}

		var v errutil.BaseError
		if errors.As(last.Err, &v) {
			c.JSON(v.Code.HTTPStatus(), v)
			return
		}

		c.JSON(http.StatusInternalServerError, errutil.BaseError{
			Code:    errutil.StatusInternal,
			Message: "internal server error",
		})
	}
}
