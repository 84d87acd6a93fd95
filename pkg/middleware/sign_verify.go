package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// SignatureMaxSkew 时间戳允许的最大偏差
var SignatureMaxSkew = 5 * time.Minute

// Sign 计算 HMAC-SHA256 签名：method + path + body + timestamp
func Sign(secretKey, method, path string, body []byte, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(fmt.Sprintf("%s%s%s%s", method, path, body, timestamp)))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignVerify 终端请求签名校验，secret 为空时直接放行
func SignVerify(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		// 从请求头中获取签名
		signature := c.GetHeader("Signature")
		if signature == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Signature is missing"})
			return
		}

		timestamp := c.Query("timestamp")
		if timestamp == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Timestamp is missing"})
			return
		}
		sec, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Timestamp is invalid"})
			return
		}
		if skew := time.Since(time.Unix(sec, 0)); skew > SignatureMaxSkew || skew < -SignatureMaxSkew {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Timestamp expired"})
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		expected := Sign(secret, c.Request.Method, c.Request.URL.Path, body, timestamp)
		if !hmac.Equal([]byte(signature), []byte(expected)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid signature"})
			return
		}
		c.Next()
	}
}
