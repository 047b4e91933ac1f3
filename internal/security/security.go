package security

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/openfleet/fleetmeter/internal/database"
	"github.com/openfleet/fleetmeter/internal/types"
)

// SecurityConfig holds security configuration
type SecurityConfig struct {
	MaxInputLength int           `json:"max_input_length"`
	EnableCORS     bool          `json:"enable_cors"`
	AllowedOrigins []string      `json:"allowed_origins"`
	TrustedProxies []string      `json:"trusted_proxies"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

// DefaultSecurityConfig returns secure defaults
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxInputLength: 200,
		EnableCORS:     true,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		TrustedProxies: []string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"},
		RequestTimeout: 30 * time.Second,
	}
}

// identifierPattern matches driver and operator IDs as they appear in
// telemetry feeds: alphanumeric with dots, dashes and underscores inside.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// SecurityMiddleware provides input validation, auth and CORS middleware
type SecurityMiddleware struct {
	config          SecurityConfig
	operatorService *database.OperatorService
}

// NewSecurityMiddleware creates a new security middleware instance
func NewSecurityMiddleware(config SecurityConfig) *SecurityMiddleware {
	return &SecurityMiddleware{
		config: config,
	}
}

// SetOperatorService sets the operator service used to verify session tokens
func (sm *SecurityMiddleware) SetOperatorService(operatorService *database.OperatorService) {
	sm.operatorService = operatorService
}

// ValidateInput performs input validation on identifier-style fields
func (sm *SecurityMiddleware) ValidateInput(input string) error {
	if len(input) > sm.config.MaxInputLength {
		return fmt.Errorf("input exceeds maximum length of %d characters", sm.config.MaxInputLength)
	}

	if strings.Contains(input, "\x00") {
		return fmt.Errorf("input contains invalid characters")
	}

	if !utf8.ValidString(input) {
		return fmt.Errorf("input contains invalid UTF-8 encoding")
	}

	suspiciousPatterns := []string{
		`<script`, `</script>`, `javascript:`,
		`union select`, `drop table`, `alter table`,
		`--`, `/*`, `*/`, `xp_`, `sp_`,
	}

	inputLower := strings.ToLower(input)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(inputLower, pattern) {
			return fmt.Errorf("input contains suspicious patterns")
		}
	}

	return nil
}

// ValidateIdentifier checks that a driver or operator ID has the expected
// shape before it reaches a query.
func (sm *SecurityMiddleware) ValidateIdentifier(id string) error {
	if err := sm.ValidateInput(id); err != nil {
		return err
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("invalid identifier format")
	}
	if !identifierPattern.MatchString(id) {
		return fmt.Errorf("invalid identifier format")
	}
	return nil
}

// SanitizeInput sanitizes free-text input by removing markup
func (sm *SecurityMiddleware) SanitizeInput(input string) string {
	input = strings.TrimSpace(input)

	scriptPattern := regexp.MustCompile(`(?i)<script[^>]*>.*?</script>`)
	input = scriptPattern.ReplaceAllString(input, "")

	htmlTagPattern := regexp.MustCompile(`<[^>]+>`)
	input = htmlTagPattern.ReplaceAllString(input, "")

	input = regexp.MustCompile(`\s+`).ReplaceAllString(input, " ")

	htmlEntities := map[string]string{
		"&lt;":   "<",
		"&gt;":   ">",
		"&amp;":  "&",
		"&quot;": "\"",
		"&#x27;": "'",
		"&#39;":  "'",
	}

	for entity, char := range htmlEntities {
		input = strings.ReplaceAll(input, entity, char)
	}

	return input
}

// AuthRequired validates the Bearer session token and stores the operator's
// identity in the request context for downstream handlers.
func (sm *SecurityMiddleware) AuthRequired(c *gin.Context) {
	if sm.operatorService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "authentication not configured",
		})
		c.Abort()
		return
	}

	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "missing or malformed authorization header",
		})
		c.Abort()
		return
	}

	claims, err := sm.operatorService.ValidateSessionToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired session token",
		})
		c.Abort()
		return
	}

	c.Set("operator_id", claims.OperatorID)
	c.Set("role", claims.Role)
	c.Set("company_id", claims.CompanyID)

	c.Next()
}

// RequireRole aborts with 403 unless the authenticated operator holds one of
// the given roles. Must run after AuthRequired.
func (sm *SecurityMiddleware) RequireRole(roles ...types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleValue, exists := c.Get("role")
		if !exists {
			c.JSON(http.StatusForbidden, gin.H{"error": "role not established"})
			c.Abort()
			return
		}

		roleStr, _ := roleValue.(string)
		for _, allowed := range roles {
			if roleStr == string(allowed) {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"error": "insufficient permissions",
		})
		c.Abort()
	}
}

// ValidateContentType validates request content type
func (sm *SecurityMiddleware) ValidateContentType(c *gin.Context) {
	contentType := c.GetHeader("Content-Type")

	allowedTypes := []string{
		"application/json",
		"application/x-www-form-urlencoded",
		"multipart/form-data",
	}

	if contentType != "" {
		found := false
		for _, allowed := range allowedTypes {
			if strings.Contains(strings.ToLower(contentType), allowed) {
				found = true
				break
			}
		}

		if !found {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{
				"error": "unsupported content type",
			})
			c.Abort()
			return
		}
	}

	c.Next()
}

// RequestTimeout enforces request timeout
func (sm *SecurityMiddleware) RequestTimeout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), sm.config.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)

	c.Header("X-Timeout", strconv.Itoa(int(sm.config.RequestTimeout.Seconds())))

	c.Next()
}

// ValidateAnalyzeRequest validates the risk analysis request body
func (sm *SecurityMiddleware) ValidateAnalyzeRequest(c *gin.Context) {
	var req types.AnalyzeRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid JSON format",
		})
		c.Abort()
		return
	}

	if req.DriverID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "driver_id field is required",
		})
		c.Abort()
		return
	}

	if err := sm.ValidateIdentifier(req.DriverID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("driver_id validation failed: %v", err),
		})
		c.Abort()
		return
	}

	c.Set("driver_id", req.DriverID)
	c.Next()
}
