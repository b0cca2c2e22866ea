package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DeviceStatusActive   = "active"
	DeviceStatusInactive = "inactive"
)

// Device is the monitoring hardware bound to one senior.
type Device struct {
	ID       string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	SeniorID string    `gorm:"type:varchar(11);index;not null" json:"senior_id"`
	Status   string    `gorm:"type:varchar(32);not null" json:"status"`
	LastSync time.Time `json:"last_sync"`
}

func (d *Device) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = DeviceStatusActive
	}
	return nil
}

// ValidDeviceStatus reports whether status is a known device status.
func ValidDeviceStatus(status string) bool {
	return status == DeviceStatusActive || status == DeviceStatusInactive
}
