package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseToken(t *testing.T) {
	token, err := GenerateToken(testSecret, "DSP001", RoleDispatcher, "Juan", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "DSP001", claims.ID)
	assert.Equal(t, RoleDispatcher, claims.Role)
	assert.Equal(t, "Juan", claims.Name)

	_, err = ParseToken("other-secret", token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = ParseToken(testSecret, "")
	assert.ErrorIs(t, err, ErrTokenMissing)

	expired, err := GenerateToken(testSecret, "DSP001", RoleDispatcher, "", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(testSecret, expired)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseTokenRejectsOtherAlgorithms(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{ID: "ADM001", Role: RoleAdmin}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ParseToken(testSecret, raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAuthRequiredAndRequireRole(t *testing.T) {
	r := gin.New()
	r.GET("/dispatch", AuthRequired(testSecret), RequireRole(RoleDispatcher), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentClaims(c).ID)
	})

	dispatcher, _ := GenerateToken(testSecret, "DSP001", RoleDispatcher, "", time.Hour)
	admin, _ := GenerateToken(testSecret, "ADM001", RoleAdmin, "", time.Hour)

	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"missing token", "", "", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", "", http.StatusForbidden},
		{"wrong role", "Bearer " + admin, "", http.StatusForbidden},
		{"bearer header", "Bearer " + dispatcher, "", http.StatusOK},
		{"query token", "", "?token=" + dispatcher, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/dispatch"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "DSP001", w.Body.String())
			}
		})
	}
}
