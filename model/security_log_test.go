package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityLogModel_CreateAndRead(t *testing.T) {
	db := setupTestDB(t, "securitylog_create")

	entry := SecurityLog{
		EventType: "LOGIN_FAILURE",
		Email:     "cuidador@serena.com",
		IP:        "10.0.0.1",
		UserAgent: "Mozilla/5.0",
		Location:  "São Paulo/Brazil",
		Message:   "invalid password",
		Details:   []byte(`{"path":"/auth/login"}`),
	}
	require.NoError(t, db.Create(&entry).Error)
	assert.NotZero(t, entry.ID)
	assert.NotZero(t, entry.CreatedAt)

	var found SecurityLog
	require.NoError(t, db.First(&found, entry.ID).Error)
	assert.Equal(t, "LOGIN_FAILURE", found.EventType)
	assert.Equal(t, "São Paulo/Brazil", found.Location)

	var details map[string]string
	require.NoError(t, json.Unmarshal(found.Details, &details))
	assert.Equal(t, "/auth/login", details["path"])
}

func TestSecurityLogModel_OptionalFields(t *testing.T) {
	db := setupTestDB(t, "securitylog_optional")

	entry := SecurityLog{EventType: "UNAUTHORIZED_ACCESS", IP: "127.0.0.1"}
	require.NoError(t, db.Create(&entry).Error)

	var found SecurityLog
	require.NoError(t, db.First(&found, entry.ID).Error)
	assert.Empty(t, found.UserID)
	assert.Empty(t, found.Email)
	assert.Empty(t, found.Location)
}

func TestSecurityLogModel_ListByEventType(t *testing.T) {
	db := setupTestDB(t, "securitylog_list")

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&SecurityLog{EventType: "LOGIN_SUCCESS", UserID: "u1", IP: "192.168.1.1"}).Error)
	}
	require.NoError(t, db.Create(&SecurityLog{EventType: "LOGOUT", UserID: "u1", IP: "192.168.1.1"}).Error)

	assert.Equal(t, int64(3), countRows(t, db, &SecurityLog{}, "event_type = ?", "LOGIN_SUCCESS"))
	assert.Equal(t, int64(4), countRows(t, db, &SecurityLog{}, "user_id = ?", "u1"))
}
