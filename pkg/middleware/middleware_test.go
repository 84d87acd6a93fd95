package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterDeniesOverLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: "2-M", AddHeaders: true}, nil).WithObserver(NewPrometheusObserver())

	r := gin.New()
	r.POST("/alerts/critical", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/alerts/critical", nil))
		codes = append(codes, w.Code)
		if i == 2 {
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
			assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		}
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)

	// 放宽速率后重新放行
	rl.UpdateConfig(RateLimiterConfig{Rate: "100-M"})
	assert.Equal(t, "100-M", rl.Config().Rate)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/alerts/critical", nil))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRateLimiterKeysByHeader(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: "1-M", Identifier: "header", HeaderName: "X-Terminal-ID"}, nil)

	r := gin.New()
	r.POST("/alerts/user", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	send := func(terminal string) int {
		req := httptest.NewRequest(http.MethodPost, "/alerts/user", nil)
		req.Header.Set("X-Terminal-ID", terminal)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusCreated, send("RSQW-001"))
	assert.Equal(t, http.StatusCreated, send("RSQW-002"))
	assert.Equal(t, http.StatusTooManyRequests, send("RSQW-001"))
}

func TestIdempotencyRejectsReplay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fail := true
	r := gin.New()
	r.POST("/rescue-forms/:alertID", Idempotency(IdempotencyConfig{Context: ctx}), func(c *gin.Context) {
		if fail {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusCreated)
	})

	send := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/rescue-forms/ALRT001", strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", key)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	// 失败的请求不占用幂等键
	assert.Equal(t, http.StatusBadRequest, send("k1"))
	fail = false
	assert.Equal(t, http.StatusCreated, send("k1"))
	assert.Equal(t, http.StatusConflict, send("k1"))
	assert.Equal(t, http.StatusCreated, send("k2"))
}

func TestSignVerify(t *testing.T) {
	const secret = "terminal-secret"
	r := gin.New()
	r.POST("/alerts/critical", SignVerify(secret), func(c *gin.Context) {
		b, _ := c.GetRawData()
		c.String(http.StatusCreated, string(b))
	})

	body := `{"terminalId":"RSQW-001"}`
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	send := func(sig, ts string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/alerts/critical?timestamp="+ts, strings.NewReader(body))
		if sig != "" {
			req.Header.Set("Signature", sig)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send(Sign(secret, http.MethodPost, "/alerts/critical", []byte(body), ts), ts)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, body, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, send("", ts).Code)
	assert.Equal(t, http.StatusUnauthorized, send("deadbeef", ts).Code)

	old := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)
	assert.Equal(t, http.StatusUnauthorized, send(Sign(secret, http.MethodPost, "/alerts/critical", []byte(body), old), old).Code)
}

func TestSignVerifyDisabledWithoutSecret(t *testing.T) {
	r := gin.New()
	r.POST("/alerts/user", SignVerify(""), func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/alerts/user", nil))
	assert.Equal(t, http.StatusCreated, w.Code)
}
