package util

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/serenacare/serena-api/model"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SecurityEventType represents different types of security events
type SecurityEventType string

const (
	EventLoginSuccess       SecurityEventType = "LOGIN_SUCCESS"
	EventLoginFailure       SecurityEventType = "LOGIN_FAILURE"
	EventLogout             SecurityEventType = "LOGOUT"
	EventUnauthorizedAccess SecurityEventType = "UNAUTHORIZED_ACCESS"
	EventForbiddenAccess    SecurityEventType = "FORBIDDEN_ACCESS"
	EventRateLimitExceeded  SecurityEventType = "RATE_LIMIT_EXCEEDED"
	EventSuspiciousActivity SecurityEventType = "SUSPICIOUS_ACTIVITY"
)

// SecurityEvent represents a security event to be logged
type SecurityEvent struct {
	EventType SecurityEventType
	UserID    string
	Email     string
	IP        string
	UserAgent string
	Message   string
	Details   map[string]interface{}
}

// SecurityLogger writes security events to the log and, when a database is
// set, to the security_logs table. A nil *SecurityLogger discards events.
type SecurityLogger struct {
	db  *gorm.DB
	geo *GeoIPResolver
	log logrus.FieldLogger
}

func NewSecurityLogger(db *gorm.DB, geo *GeoIPResolver) *SecurityLogger {
	return &SecurityLogger{db: db, geo: geo, log: logrus.StandardLogger()}
}

// WithLogger swaps the destination logger, mostly for tests.
func (l *SecurityLogger) WithLogger(logger logrus.FieldLogger) *SecurityLogger {
	cp := *l
	cp.log = logger
	return &cp
}

// sanitizeLogValue removes newlines and other characters that could break log parsing
func sanitizeLogValue(value string) string {
	value = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(value)
	if len(value) > 200 {
		value = value[:200] + "..."
	}
	return value
}

func (l *SecurityLogger) Log(event SecurityEvent) {
	if l == nil {
		return
	}

	location := l.geo.Location(event.IP)
	fields := logrus.Fields{
		"security":   true,
		"event":      sanitizeLogValue(string(event.EventType)),
		"user_id":    sanitizeLogValue(event.UserID),
		"email":      sanitizeLogValue(event.Email),
		"ip":         sanitizeLogValue(event.IP),
		"user_agent": sanitizeLogValue(event.UserAgent),
	}
	if location != "" {
		fields["location"] = location
	}
	if len(event.Details) > 0 {
		fields["details_count"] = len(event.Details)
	}
	l.log.WithFields(fields).Warn(sanitizeLogValue(event.Message))

	if l.db == nil {
		return
	}
	var details datatypes.JSON
	if event.Details != nil {
		if b, err := json.Marshal(event.Details); err == nil {
			details = datatypes.JSON(b)
		}
	}
	entry := model.SecurityLog{
		EventType: string(event.EventType),
		UserID:    sanitizeLogValue(event.UserID),
		Email:     sanitizeLogValue(event.Email),
		IP:        sanitizeLogValue(event.IP),
		Location:  sanitizeLogValue(location),
		UserAgent: sanitizeLogValue(event.UserAgent),
		Message:   sanitizeLogValue(event.Message),
		Details:   details,
	}
	if err := l.db.Create(&entry).Error; err != nil {
		l.log.WithError(err).Error("failed to persist security event")
	}
}

func (l *SecurityLogger) LoginSuccess(userID, email, ip, userAgent string) {
	l.Log(SecurityEvent{
		EventType: EventLoginSuccess,
		UserID:    userID,
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Message:   "User logged in successfully",
	})
}

func (l *SecurityLogger) LoginFailure(email, ip, userAgent, reason string) {
	l.Log(SecurityEvent{
		EventType: EventLoginFailure,
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Message:   fmt.Sprintf("Login failed: %s", reason),
	})
}

func (l *SecurityLogger) Logout(userID, email, ip, userAgent string) {
	l.Log(SecurityEvent{
		EventType: EventLogout,
		UserID:    userID,
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Message:   "User logged out",
	})
}

func (l *SecurityLogger) UnauthorizedAccess(ip, userAgent, resource, reason string) {
	l.Log(SecurityEvent{
		EventType: EventUnauthorizedAccess,
		IP:        ip,
		UserAgent: userAgent,
		Message:   fmt.Sprintf("Unauthorized access to %s: %s", resource, reason),
	})
}

func (l *SecurityLogger) ForbiddenAccess(userID, ip, resource string) {
	l.Log(SecurityEvent{
		EventType: EventForbiddenAccess,
		UserID:    userID,
		IP:        ip,
		Message:   fmt.Sprintf("Forbidden access to %s", resource),
	})
}

func (l *SecurityLogger) RateLimitExceeded(ip, endpoint string) {
	l.Log(SecurityEvent{
		EventType: EventRateLimitExceeded,
		IP:        ip,
		Message:   fmt.Sprintf("Rate limit exceeded for endpoint: %s", endpoint),
	})
}
