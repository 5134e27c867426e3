package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/tenant_pos/internal/models"
	"github.com/GTDGit/tenant_pos/internal/utils"
)

const tenantContextKey = "tenant"

// TenantMiddleware verifies the bearer token issued by the identity provider
// and stores the resulting models.TenantContext on the request.
type TenantMiddleware struct {
	secret      string
	rateLimiter *InvalidAuthRateLimiter
}

// NewTenantMiddleware constructs a TenantMiddleware. rateLimiter may be nil.
func NewTenantMiddleware(secret string, rateLimiter *InvalidAuthRateLimiter) *TenantMiddleware {
	return &TenantMiddleware{secret: secret, rateLimiter: rateLimiter}
}

// Handle returns the gin handler. The token is read from the Authorization
// header, or from the token query parameter for EventSource clients that
// cannot set headers.
func (m *TenantMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if m.rateLimiter != nil && m.rateLimiter.Blocked(ip) {
			utils.Error(c, 429, "RATE_LIMITED", "Too many invalid authentication attempts")
			c.Abort()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			m.reject(c, ip, "UNAUTHORIZED", "Missing or invalid authorization header")
			return
		}

		claims, err := utils.ValidateJWT(m.secret, token)
		if err != nil {
			log.Debug().Err(err).Str("ip", ip).Msg("Token rejected")
			m.reject(c, ip, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		tc := models.TenantContext{TenantID: claims.TenantID, UserID: claims.Subject}
		c.Set(tenantContextKey, tc)
		c.Set("tenant_id", tc.TenantID)
		c.Set("user_id", tc.UserID)
		c.Next()
	}
}

func (m *TenantMiddleware) reject(c *gin.Context, ip, code, message string) {
	if m.rateLimiter != nil {
		m.rateLimiter.Fail(ip)
	}
	utils.Error(c, 401, code, message)
	c.Abort()
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if q := c.Query("token"); q != "" {
			return q, true
		}
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// TenantFromContext returns the tenant stored by TenantMiddleware. The zero
// value is returned for unauthenticated requests.
func TenantFromContext(c *gin.Context) models.TenantContext {
	v, ok := c.Get(tenantContextKey)
	if !ok {
		return models.TenantContext{}
	}
	tc, _ := v.(models.TenantContext)
	return tc
}
