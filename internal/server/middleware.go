package server

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/umagate/umagate/internal/config"
	"github.com/umagate/umagate/internal/observability/obscontext"
	tenantdomain "github.com/umagate/umagate/internal/tenant/domain"
	"go.uber.org/zap"
)

const contextTenantKey = "tenant_record"

// TenantRequired resolves the serving tenant from the request host and
// attaches it to the gin context. Unmatched protocol requests are rejected
// with the tenant error envelope.
func (s *Server) TenantRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := s.resolveTenant(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if rec == nil {
			AbortWithError(c, ErrTenantNotFound)
			return
		}

		c.Set(contextTenantKey, rec)
		c.Set("tenant_id", rec.ID)
		c.Request = c.Request.WithContext(obscontext.WithTenantID(c.Request.Context(), rec.ID))
		c.Next()
	}
}

func (s *Server) resolveTenant(c *gin.Context) (*tenantdomain.Record, error) {
	host := hostWithoutPort(c.Request.Host)
	if host == "" {
		return nil, nil
	}

	rule := s.resolver.Get()
	switch rule.Match {
	case config.MatchDomain:
		return s.directory.GetByDomain(c.Request.Context(), host)
	default:
		token, _, _ := strings.Cut(host, ".")
		if len(token) != rule.TokenLength {
			return nil, nil
		}
		for _, rec := range s.directory.ListActive() {
			if rec.Hostname() == token {
				return rec, nil
			}
		}
		return nil, nil
	}
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func tenantFromContext(c *gin.Context) *tenantdomain.Record {
	if v, ok := c.Get(contextTenantKey); ok {
		if rec, ok := v.(*tenantdomain.Record); ok {
			return rec
		}
	}
	return nil
}

// AdminAuthRequired gates the provisioning API with a bearer token. Without a
// configured secret the API only works in development environments.
func (s *Server) AdminAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := strings.TrimSpace(s.cfg.AdminJWTSecret)
		if secret == "" {
			if s.cfg.IsDev() {
				c.Next()
				return
			}
			s.log.Warn("admin request rejected, ADMIN_JWT_SECRET is not set")
			AbortWithError(c, ErrUnauthorized)
			return
		}

		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		token, found := strings.CutPrefix(raw, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid {
			s.log.Warn("admin token rejected", zap.Error(err))
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Next()
	}
}
