package middleware

import (
	"net/http"

	"github.com/bplo/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimit caps the request body size. Record payloads are small; anything
// past the cap is rejected up front with 413 so oversized uploads never reach
// the binding layer. Bodies sent without a Content-Length are capped while
// streaming via MaxBytesReader.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse("PAYLOAD_TOO_LARGE", "Request body exceeds the maximum allowed size"))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
