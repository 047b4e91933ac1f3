package middleware

import (
	"compress/gzip"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(cm *Compressor, body string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(cm.Middleware())
	router.GET("/data", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(body))
	})
	return router
}

func TestCompressLargeJSONResponse(t *testing.T) {
	cm := NewCompressor(DefaultCompressionConfig())
	body := strings.Repeat(`{"driver_id":"drv-1","score":45},`, 100)
	router := newRouter(cm, body)

	req := httptest.NewRequest(http.MethodGet, "/data", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	defer gz.Close()

	var out strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := gz.Read(buf)
		out.Write(buf[:n])
		if err != nil {
			break
		}
	}
	assert.Equal(t, body, out.String())
}

func TestSkipSmallResponses(t *testing.T) {
	cm := NewCompressor(DefaultCompressionConfig())
	router := newRouter(cm, `{"status":"ok"}`)

	req := httptest.NewRequest(http.MethodGet, "/data", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, `{"status":"ok"}`, w.Body.String())
}

func TestSkipWithoutAcceptEncoding(t *testing.T) {
	cm := NewCompressor(DefaultCompressionConfig())
	body := strings.Repeat("x", 4096)
	router := newRouter(cm, body)

	req := httptest.NewRequest(http.MethodGet, "/data", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, body, w.Body.String())
}

func TestSkipNonCompressibleContentType(t *testing.T) {
	cm := NewCompressor(DefaultCompressionConfig())
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(cm.Middleware())
	router.GET("/image", func(c *gin.Context) {
		c.Data(http.StatusOK, "image/png", make([]byte, 4096))
	})

	req := httptest.NewRequest(http.MethodGet, "/image", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
}

func TestPreservesStatusCode(t *testing.T) {
	cm := NewCompressor(DefaultCompressionConfig())
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(cm.Middleware())
	router.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCompressionStats(t *testing.T) {
	cm := NewCompressor(DefaultCompressionConfig())
	body := strings.Repeat(`{"k":"v"},`, 500)
	router := newRouter(cm, body)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/data", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	stats := cm.GetStats()
	assert.Equal(t, int64(3), stats["total_requests"])
	assert.Equal(t, int64(3), stats["compressed_count"])
	assert.Less(t, stats["compressed_bytes"].(int64), stats["original_bytes"].(int64))
}
