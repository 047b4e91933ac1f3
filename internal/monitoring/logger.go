package monitoring

import (
	"log/slog"
	"os"
	"time"
)

// Logger provides enhanced structured logging with context
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new enhanced logger
func NewLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RequestLogger logs HTTP request details
func (l *Logger) RequestLogger(method, path, ip, userAgent string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"method", method,
		"path", path,
		"ip", ip,
		"user_agent", userAgent,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// AnalysisLogger logs one risk-analysis run
func (l *Logger) AnalysisLogger(driverID string, eventCount, score int, riskLevel string, duration time.Duration, cacheHit bool) {
	l.Info("Risk Analysis Completed",
		"driver_id", driverID,
		"event_count", eventCount,
		"score", score,
		"risk_level", riskLevel,
		"duration_ms", duration.Milliseconds(),
		"cache_hit", cacheHit,
	)
}

// ImportLogger logs the outcome of a telemetry or question-bank import
func (l *Logger) ImportLogger(kind, companyID string, accepted, rejected int, duration time.Duration) {
	l.Info("Import Completed",
		"kind", kind,
		"company_id", companyID,
		"accepted", accepted,
		"rejected", rejected,
		"duration_ms", duration.Milliseconds(),
	)
}

// AssessmentLogger logs one candidate module submission
func (l *Logger) AssessmentLogger(candidateID, module string, score float64, timeSpent time.Duration) {
	l.Info("Assessment Scored",
		"candidate_id", candidateID,
		"module", module,
		"score", score,
		"time_spent_sec", int(timeSpent.Seconds()),
	)
}

// CacheLogger logs cache operations
func (l *Logger) CacheLogger(operation, key string, hit bool, itemCount int) {
	keyHash := key
	if len(keyHash) > 8 {
		keyHash = keyHash[:8] + "..."
	}
	l.Debug("Cache Operation",
		"operation", operation,
		"key_hash", keyHash,
		"hit", hit,
		"cache_size", itemCount,
	)
}

// SystemLogger logs system-level events
func (l *Logger) SystemLogger(event, details string) {
	l.Info("System Event",
		"event", event,
		"details", details,
		"uptime", time.Since(startTime).String(),
	)
}

// SecurityLogger logs security-related events
func (l *Logger) SecurityLogger(event, ip, userAgent string, details map[string]interface{}) {
	attrs := []any{
		"event", event,
		"ip", ip,
		"user_agent", userAgent,
		"timestamp", time.Now().Format(time.RFC3339),
	}

	for key, value := range details {
		attrs = append(attrs, key, value)
	}

	l.Warn("Security Event", attrs...)
}

var startTime = time.Now()
