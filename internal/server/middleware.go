package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lokapasar/lokapasar/pkg/tenantctx"
	"go.uber.org/zap"
)

const HeaderTenant = "X-Tenant-ID"

// RequestLogger logs each request with a correlation id and safe fields.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := ensureRequestID(c)

		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		if route == "/metrics" || route == "/health" {
			return
		}

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if lastErr := c.Errors.Last(); lastErr != nil {
			fields = append(fields, zap.String("error", lastErr.Err.Error()))
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error("http_request", fields...)
			return
		}
		log.Info("http_request", fields...)
	}
}

func ensureRequestID(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader("X-Request-Id"))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set("request_id", requestID)
	c.Header("X-Request-Id", requestID)
	return requestID
}

// Paths that must stay reachable for blocked tenants, probes, and gateways.
var licenseGateAllowPaths = map[string]struct{}{
	"/blocked":                    {},
	"/health":                     {},
	"/metrics":                    {},
	"/api/payments/notifications": {},
}

var licenseGateAllowPrefixes = []string{
	"/static/",
	"/api/payments/notifications/",
}

func licenseGateExempt(path string) bool {
	if _, ok := licenseGateAllowPaths[path]; ok {
		return true
	}
	for _, prefix := range licenseGateAllowPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// LicenseGate blocks storefront traffic for tenants without a valid license.
// Requests without any tenant slug pass untouched (single-tenant mode), and a
// failing license store fails open so an infrastructure incident never takes
// paying storefronts down.
func (s *Server) LicenseGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if licenseGateExempt(c.Request.URL.Path) {
			c.Next()
			return
		}

		slug := resolveTenantSlug(c)
		if slug == "" {
			c.Next()
			return
		}

		if cached, ok := s.licenseCache.Get(slug); ok {
			s.applyGateOutcome(c, cached)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.LicenseQueryTimeout)
		grant, err := s.tenantSvc.CheckLicense(ctx, slug)
		cancel()
		if err != nil {
			s.log.Warn("license check failed, allowing request",
				zap.String("tenant_slug", slug),
				zap.Error(err),
			)
			c.Next()
			return
		}

		outcome := gateOutcome{allowed: grant != nil}
		if grant != nil {
			outcome.tenant = tenantctx.Tenant{
				ID:   grant.Tenant.ID,
				Slug: grant.Tenant.Slug,
				Plan: grant.License.Plan,
			}
		}
		s.licenseCache.Set(slug, outcome)
		s.applyGateOutcome(c, outcome)
	}
}

func (s *Server) applyGateOutcome(c *gin.Context, outcome gateOutcome) {
	if !outcome.allowed {
		c.Redirect(http.StatusFound, "/blocked")
		c.Abort()
		return
	}
	ctx := tenantctx.WithTenant(c.Request.Context(), outcome.tenant)
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

// resolveTenantSlug picks the tenant slug with the query override first, then
// the host subdomain, then the header.
func resolveTenantSlug(c *gin.Context) string {
	if v := strings.TrimSpace(c.Query("tenant")); v != "" {
		return v
	}
	if v := subdomainOf(c.Request.Host); v != "" {
		return v
	}
	return strings.TrimSpace(c.GetHeader(HeaderTenant))
}

func subdomainOf(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	if idx := strings.Index(host, ":"); idx >= 0 {
		host = host[:idx]
	}
	parts := strings.Split(host, ".")
	// Need at least sub.domain.tld; bare domains and localhost carry no slug.
	if len(parts) < 3 {
		return ""
	}
	sub := parts[0]
	if sub == "" || sub == "www" {
		return ""
	}
	return sub
}
