package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Check(t *testing.T) {
	t.Run("allows up to the limit then denies", func(t *testing.T) {
		rl := NewRateLimiter(3, time.Minute)

		for i := 0; i < 3; i++ {
			decision := rl.Check("1.2.3.4")
			assert.True(t, decision.Allowed, "request %d", i+1)
			assert.Equal(t, 2-i, decision.Remaining)
		}

		decision := rl.Check("1.2.3.4")
		assert.False(t, decision.Allowed)
		assert.Equal(t, 0, decision.Remaining)
		assert.Greater(t, decision.RetryAfter, time.Duration(0))
	})

	t.Run("keys are independent", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Minute)

		assert.True(t, rl.Check("1.1.1.1").Allowed)
		assert.False(t, rl.Check("1.1.1.1").Allowed)
		assert.True(t, rl.Check("2.2.2.2").Allowed)
	})

	t.Run("window expiry frees capacity", func(t *testing.T) {
		rl := NewRateLimiter(2, 30*time.Millisecond)

		assert.True(t, rl.Check("k").Allowed)
		assert.True(t, rl.Check("k").Allowed)
		assert.False(t, rl.Check("k").Allowed)

		time.Sleep(40 * time.Millisecond)
		assert.True(t, rl.Check("k").Allowed)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RateLimit(NewRateLimiter(2, time.Minute)))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	doRequest := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		router.ServeHTTP(w, req)
		return w
	}

	w := doRequest()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	doRequest()

	w = doRequest()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "ERR_RATE_LIMITED")
}
