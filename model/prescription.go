package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Prescription ties a senior to a medication regimen written by a doctor.
// Frequency is free text: either "08:00, 20:00" or a list of hours like "8 14 20".
type Prescription struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SeniorID     string    `gorm:"type:varchar(11);index;not null" json:"senior_id"`
	MedicationID string    `gorm:"type:varchar(36);index;not null" json:"medication_id"`
	DoctorID     string    `gorm:"type:varchar(36);index;not null" json:"doctor_id"`
	Dosage       string    `gorm:"type:varchar(255)" json:"dosage"`
	Frequency    string    `gorm:"type:varchar(255)" json:"frequency"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `gorm:"index" json:"end_date"`
	Description  string    `gorm:"type:text" json:"description"`
	CreatedAt    time.Time `json:"created_at"`
}

func (p *Prescription) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NotEndedBefore scopes a prescription query to rows whose end date is on or
// after the start of day.
func NotEndedBefore(day time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("end_date >= ?", StartOfDay(day))
	}
}
