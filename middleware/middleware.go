package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/serenacare/serena-api/util"
	"gorm.io/gorm"
)

const (
	dbContextKey    = "db"
	auditContextKey = "audit"
)

// CORSMiddleware allows every origin, method and header.
func CORSMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:    []string{"*"},
		ExposeHeaders:   []string{"Content-Length", "WWW-Authenticate"},
		MaxAge:          12 * time.Hour,
	})
}

// DatabaseMiddleware gives each request its own session on db, bound to the
// request context.
func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(dbContextKey, db.WithContext(c.Request.Context()))
		c.Next()
	}
}

// GetDB returns the request's database session, or nil when DatabaseMiddleware did not run.
func GetDB(c *gin.Context) *gorm.DB {
	v, ok := c.Get(dbContextKey)
	if !ok {
		return nil
	}
	db, _ := v.(*gorm.DB)
	return db
}

// AuditMiddleware makes the security audit logger available to handlers.
func AuditMiddleware(audit *util.SecurityLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auditContextKey, audit)
		c.Next()
	}
}

// GetAudit returns the request's audit logger. A nil logger is safe to call.
func GetAudit(c *gin.Context) *util.SecurityLogger {
	v, ok := c.Get(auditContextKey)
	if !ok {
		return nil
	}
	audit, _ := v.(*util.SecurityLogger)
	return audit
}
