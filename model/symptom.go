package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinPainLevel = 0
	MaxPainLevel = 10
)

type Symptom struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SeniorID    string    `gorm:"type:varchar(11);index;not null" json:"senior_id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	PainLevel   int       `json:"pain_level"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (s *Symptom) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// ValidPainLevel reports whether level is inside the 0..10 scale.
func ValidPainLevel(level int) bool {
	return level >= MinPainLevel && level <= MaxPainLevel
}
