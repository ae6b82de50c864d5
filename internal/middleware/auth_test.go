package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestRouter(keys []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	auth := NewAPIKeyAuth(keys, nil)
	router.GET("/protected", auth.Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": UserID(c)})
	})
	return router
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name       string
		keys       []string
		headers    map[string]string
		wantStatus int
	}{
		{
			name:       "valid X-API-Key with user",
			keys:       []string{"secret-1"},
			headers:    map[string]string{"X-API-Key": "secret-1", "X-User-ID": "user-1"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid bearer token with user",
			keys:       []string{"secret-1"},
			headers:    map[string]string{"Authorization": "Bearer secret-1", "X-User-ID": "user-1"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong key",
			keys:       []string{"secret-1"},
			headers:    map[string]string{"X-API-Key": "nope", "X-User-ID": "user-1"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing key",
			keys:       []string{"secret-1"},
			headers:    map[string]string{"X-User-ID": "user-1"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "valid key but missing user header",
			keys:       []string{"secret-1"},
			headers:    map[string]string{"X-API-Key": "secret-1"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no keys configured rejects everything",
			keys:       nil,
			headers:    map[string]string{"X-API-Key": "anything", "X-User-ID": "user-1"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "second configured key works",
			keys:       []string{"secret-1", "secret-2"},
			headers:    map[string]string{"X-API-Key": "secret-2", "X-User-ID": "user-1"},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(tt.keys)

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Contains(t, rec.Body.String(), "user-1")
			}
		})
	}
}

func TestEmptyConfiguredKeysAreIgnored(t *testing.T) {
	router := newTestRouter([]string{"", "real"})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-API-Key", "")
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
