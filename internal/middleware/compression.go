package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	MinSize int // Minimum response size to compress (bytes)
	Level   int // Gzip compression level (1-9, 9 is best compression)
}

// DefaultCompressionConfig returns the default compression configuration
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024, // Compress responses >= 1KB
		Level:   6,    // Balanced compression level
	}
}

// Compressor gzips JSON responses above the size threshold. Gzip writers are
// pooled to avoid per-request allocation.
type Compressor struct {
	config CompressionConfig
	pool   sync.Pool
	stats  *compressionStats
}

type compressionStats struct {
	mu               sync.RWMutex
	totalRequests    int64
	compressedCount  int64
	originalBytes    int64
	compressedBytes  int64
}

// NewCompressor creates a compressor with the given configuration
func NewCompressor(config CompressionConfig) *Compressor {
	cm := &Compressor{
		config: config,
		stats:  &compressionStats{},
	}
	cm.pool.New = func() interface{} {
		gz, err := gzip.NewWriterLevel(nil, config.Level)
		if err != nil {
			gz = gzip.NewWriter(nil)
		}
		return gz
	}
	return cm
}

// bufferedWriter captures the response body so the middleware can decide
// whether compression is worthwhile after the handler ran.
type bufferedWriter struct {
	gin.ResponseWriter
	body   *bytes.Buffer
	status int
}

func (bw *bufferedWriter) Write(data []byte) (int, error) {
	return bw.body.Write(data)
}

func (bw *bufferedWriter) WriteString(s string) (int, error) {
	return bw.body.WriteString(s)
}

func (bw *bufferedWriter) WriteHeader(statusCode int) {
	bw.status = statusCode
}

// Middleware returns the gin handler performing the compression.
func (cm *Compressor) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
			c.Next()
			return
		}

		bw := &bufferedWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
			status:         0,
		}
		c.Writer = bw
		c.Next()
		c.Writer = bw.ResponseWriter

		data := bw.body.Bytes()
		status := bw.status
		if status == 0 {
			status = bw.ResponseWriter.Status()
		}

		contentType := c.Writer.Header().Get("Content-Type")
		if len(data) < cm.config.MinSize || !compressible(contentType) {
			c.Writer.WriteHeader(status)
			_, _ = c.Writer.Write(data)
			cm.stats.record(int64(len(data)), int64(len(data)), false)
			return
		}

		c.Header("Content-Encoding", "gzip")
		c.Header("Vary", "Accept-Encoding")
		c.Writer.Header().Del("Content-Length")
		c.Writer.WriteHeader(status)

		cw := &countingWriter{w: c.Writer}
		gz := cm.pool.Get().(*gzip.Writer)
		gz.Reset(cw)
		_, _ = gz.Write(data)
		_ = gz.Close()
		cm.pool.Put(gz)

		cm.stats.record(int64(len(data)), cw.n, true)
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

func compressible(contentType string) bool {
	switch {
	case strings.HasPrefix(contentType, "application/json"),
		strings.HasPrefix(contentType, "text/plain"),
		strings.HasPrefix(contentType, "text/html"):
		return true
	}
	return false
}

func (cs *compressionStats) record(originalSize, compressedSize int64, compressed bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.totalRequests++
	cs.originalBytes += originalSize
	if compressed {
		cs.compressedCount++
		cs.compressedBytes += compressedSize
	}
}

// GetStats returns compression counters for the health endpoint
func (cm *Compressor) GetStats() map[string]interface{} {
	cm.stats.mu.RLock()
	defer cm.stats.mu.RUnlock()

	ratio := "n/a"
	if cm.stats.originalBytes > 0 && cm.stats.compressedBytes > 0 {
		ratio = strconv.FormatFloat(
			float64(cm.stats.compressedBytes)/float64(cm.stats.originalBytes), 'f', 2, 64)
	}

	return map[string]interface{}{
		"total_requests":    cm.stats.totalRequests,
		"compressed_count":  cm.stats.compressedCount,
		"original_bytes":    cm.stats.originalBytes,
		"compressed_bytes":  cm.stats.compressedBytes,
		"compression_ratio": ratio,
	}
}
