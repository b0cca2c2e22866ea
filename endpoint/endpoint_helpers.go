package endpoint

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/serenacare/serena-api/middleware"
	"github.com/serenacare/serena-api/model"
	"github.com/serenacare/serena-api/util"
	"gorm.io/gorm"
)

// DateLayout is how calendar dates are rendered in responses.
const DateLayout = "2006-01-02"

var isoLayouts = []string{DateLayout, "2006-01-02T15:04:05", "2006-01-02T15:04", time.RFC3339, time.RFC3339Nano}

func bindJSONOrRespond(c *gin.Context, dst interface{}, msg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: msg,
			Err: fmt.Errorf("%s: %w", util.FormatValidationError(err), util.ErrValidation),
		})
		return false
	}
	return true
}

// ensureDB returns the request's database session or responds with 500.
func ensureDB(c *gin.Context) (*gorm.DB, bool) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Database connection not available",
			Err: fmt.Errorf("db is nil"),
		})
		return nil, false
	}
	return db, true
}

// currentUserOrRespond returns the authenticated user or responds with 401.
func currentUserOrRespond(c *gin.Context) (model.User, bool) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: middleware.CredentialsErrorMsg,
			Err: util.ErrUnauthenticated,
		})
		return model.User{}, false
	}
	return user, true
}

// requestScope bundles what nearly every protected handler needs.
func requestScope(c *gin.Context) (*gorm.DB, model.User, bool) {
	db, ok := ensureDB(c)
	if !ok {
		return nil, model.User{}, false
	}
	user, ok := currentUserOrRespond(c)
	if !ok {
		return nil, model.User{}, false
	}
	return db, user, true
}

func getPathParam(c *gin.Context, name, label string) (string, bool) {
	v := strings.TrimSpace(c.Param(name))
	if v == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: fmt.Sprintf("Missing %s", label),
			Err: fmt.Errorf("%s is required: %w", label, util.ErrValidation),
		})
		return "", false
	}
	return v, true
}

// firstOrNotFound loads one row matching query, translating a miss into util.ErrNotFound.
func firstOrNotFound[T any](db *gorm.DB, what, query string, args ...interface{}) (T, error) {
	var out T
	err := db.Where(query, args...).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return out, fmt.Errorf("%s not found: %w", what, util.ErrNotFound)
	}
	if err != nil {
		return out, fmt.Errorf("failed to load %s: %w", what, err)
	}
	return out, nil
}

func exists[T any](db *gorm.DB, query string, args ...interface{}) (bool, error) {
	var count int64
	err := db.Model(new(T)).Where(query, args...).Count(&count).Error
	return count > 0, err
}

// parseISODate accepts a calendar date or an ISO 8601 timestamp.
func parseISODate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: %w", s, util.ErrValidation)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}
