package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validatedRequest struct {
	AccountNo string `json:"accountNo" binding:"required"`
	Page      int    `form:"page" json:"page" binding:"omitempty,min=1"`
}

func TestHandleValidationError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetupValidator()

	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req validatedRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.String(http.StatusOK, "ok")
	})

	t.Run("reports missing required field by json tag", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/test", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_VALIDATION")
		assert.Contains(t, w.Body.String(), "accountNo")
		assert.Contains(t, w.Body.String(), "This field is required")
	})

	t.Run("reports out-of-range values", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/test", strings.NewReader(`{"accountNo":"1001","page":-3}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "page")
		assert.Contains(t, w.Body.String(), "Must be at least 1")
	})

	t.Run("passes valid payloads", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/test", strings.NewReader(`{"accountNo":"1001","page":2}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
