package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	apiKeyNameContextKey = "api_key_name"
	defaultAPIKeyHeader  = "X-API-Key"
)

// APIKeyConfig lists accepted keys and the header they are read from.
type APIKeyConfig struct {
	// ValidKeys maps API keys to a human-readable name.
	ValidKeys  map[string]string
	HeaderName string
}

// APIKey authenticates requests by a shared secret.
type APIKey struct {
	config APIKeyConfig
}

// NewAPIKey defaults HeaderName to X-API-Key.
func NewAPIKey(config APIKeyConfig) *APIKey {
	if config.HeaderName == "" {
		config.HeaderName = defaultAPIKeyHeader
	}
	return &APIKey{config: config}
}

// Middleware accepts the key from the configured header or an
// "Authorization: Bearer" header.
func (ak *APIKey) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(ak.config.HeaderName)
		if apiKey == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_api_key",
				"message": "API key required in " + ak.config.HeaderName + " or Authorization: Bearer",
			})
			return
		}

		// Constant-time comparison against every key.
		var keyName string
		valid := false
		for validKey, name := range ak.config.ValidKeys {
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(validKey)) == 1 {
				valid = true
				keyName = name
			}
		}

		if !valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_api_key",
				"message": "Invalid API key",
			})
			return
		}

		c.Set(apiKeyNameContextKey, keyName)
		c.Next()
	}
}

// RequireAPIKey builds the middleware with the default header.
func RequireAPIKey(validKeys map[string]string) gin.HandlerFunc {
	return NewAPIKey(APIKeyConfig{ValidKeys: validKeys}).Middleware()
}

// APIKeyName returns the name of the key that authenticated the request.
func APIKeyName(c *gin.Context) (string, bool) {
	name, ok := c.Get(apiKeyNameContextKey)
	if !ok {
		return "", false
	}
	s, ok := name.(string)
	return s, ok
}
