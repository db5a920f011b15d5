package httpserver

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"storefront-api/internal/apperr"
	"storefront-api/internal/auth"
	"storefront-api/internal/logger"
	"storefront-api/internal/metrics"
)

const (
	requestIDHeader = "X-Request-Id"
	tokenCookie     = "token"

	ctxUserID  = "auth.user_id"
	ctxIsAdmin = "auth.is_admin"
)

type tokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

func requestID(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(requestIDHeader, reqID)
		if log != nil {
			c.Request = c.Request.WithContext(log.WithRequestID(c.Request.Context(), reqID))
		}
		c.Next()
	}
}

func accessLog(log *logger.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		m.ObserveHTTP(c.Request.Method, route, status, elapsed)

		if log != nil {
			ctx := log.WithFields(c.Request.Context(), map[string]any{
				"method":      c.Request.Method,
				"path":        c.Request.URL.Path,
				"route":       route,
				"status":      status,
				"duration_ms": elapsed.Milliseconds(),
			})
			log.Info(ctx, "request.complete")
		}
	}
}

func recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				err := fmt.Errorf("panic: %v", rec)
				writeError(c, log, apperr.Wrap(apperr.CodeInternal, err, "panic"))
			}
		}()
		c.Next()
	}
}

// authenticate accepts a bearer token or the token cookie set at login.
func authenticate(parser tokenParser, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			if cookie, err := c.Cookie(tokenCookie); err == nil {
				token = strings.TrimSpace(cookie)
			}
		}
		if token == "" {
			writeError(c, log, apperr.Unauthorized("missing credentials"))
			return
		}
		claims, err := parser.Parse(token)
		if err != nil || claims.UserID == "" {
			writeError(c, log, apperr.Unauthorized("invalid token"))
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxIsAdmin, claims.IsAdmin)
		if log != nil {
			c.Request = c.Request.WithContext(log.WithUserID(c.Request.Context(), claims.UserID))
		}
		c.Next()
	}
}

func requireAdmin(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ctxIsAdmin) {
			writeError(c, log, apperr.Forbidden("admin access required"))
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	raw := strings.TrimSpace(header)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return ""
}

func currentUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// pathID reads a UUID path parameter. Anything else cannot name a row, so it is a 404.
func pathID(c *gin.Context, log *logger.Logger, name, resource string) (string, bool) {
	id := c.Param(name)
	if _, err := uuid.Parse(id); err != nil {
		writeError(c, log, apperr.NotFound(resource+" not found"))
		return "", false
	}
	return id, true
}
