package model

import (
	"fmt"
	"regexp"
	"time"

	"gorm.io/gorm"
)

// BirthDateLayout is the DD/MM/YYYY layout seniors' birth dates are stored in.
const BirthDateLayout = "02/01/2006"

var seniorIDPattern = regexp.MustCompile(`^\d{11}$`)

// Senior is a monitored person, identified by an 11-digit national identifier.
type Senior struct {
	ID        string    `gorm:"primaryKey;type:varchar(11)" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	BirthDate string    `gorm:"type:varchar(10)" json:"birth_date"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidSeniorID reports whether id is exactly 11 digits.
func ValidSeniorID(id string) bool {
	return seniorIDPattern.MatchString(id)
}

// ParseBirthDate parses a DD/MM/YYYY birth date.
func ParseBirthDate(s string) (time.Time, error) {
	return time.Parse(BirthDateLayout, s)
}

// SeniorProvision describes a senior together with the device that monitors them.
type SeniorProvision struct {
	Senior   Senior
	DeviceID string
	// LinkUserIDs are users given access to the senior.
	LinkUserIDs []string
	// Fill optionally stocks compartments by position (1-based). Positions not
	// present stay unfilled.
	Fill map[int]CompartmentFill
}

// CompartmentFill is the initial content of one compartment.
type CompartmentFill struct {
	MedicationID string
	Quantity     int
}

// ProvisionedSenior is the device chain written by ProvisionSenior.
type ProvisionedSenior struct {
	Senior       Senior
	Device       Device
	Dispenser    Dispenser
	Compartments []Compartment
}

// ProvisionSenior writes the senior, user links, device, dispenser and its
// compartments in a single transaction. Nothing is kept if any step fails.
func ProvisionSenior(db *gorm.DB, p SeniorProvision) (ProvisionedSenior, error) {
	var out ProvisionedSenior
	err := db.Transaction(func(tx *gorm.DB) error {
		senior := p.Senior
		if err := tx.Create(&senior).Error; err != nil {
			return fmt.Errorf("failed to create senior: %w", err)
		}

		for _, userID := range p.LinkUserIDs {
			link := UserSenior{UserID: userID, SeniorID: senior.ID}
			if err := tx.Create(&link).Error; err != nil {
				return fmt.Errorf("failed to link user %s: %w", userID, err)
			}
		}

		device := Device{ID: p.DeviceID, SeniorID: senior.ID, Status: DeviceStatusActive, LastSync: time.Now().UTC()}
		if err := tx.Create(&device).Error; err != nil {
			return fmt.Errorf("failed to create device: %w", err)
		}

		dispenser := Dispenser{DeviceID: device.ID}
		if err := tx.Create(&dispenser).Error; err != nil {
			return fmt.Errorf("failed to create dispenser: %w", err)
		}

		compartments := NewCompartments(dispenser.ID, p.Fill)
		if err := tx.Create(&compartments).Error; err != nil {
			return fmt.Errorf("failed to create compartments: %w", err)
		}

		out = ProvisionedSenior{Senior: senior, Device: device, Dispenser: dispenser, Compartments: compartments}
		return nil
	})
	return out, err
}

// DeleteSeniorCascade removes a senior and everything hanging off it.
// It returns gorm.ErrRecordNotFound when the senior does not exist.
func DeleteSeniorCascade(db *gorm.DB, seniorID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var senior Senior
		if err := tx.First(&senior, "id = ?", seniorID).Error; err != nil {
			return err
		}

		deviceIDs := tx.Model(&Device{}).Select("id").Where("senior_id = ?", seniorID)
		dispenserIDs := tx.Model(&Dispenser{}).Select("id").Where("device_id IN (?)", deviceIDs)

		steps := []struct {
			name  string
			query *gorm.DB
			model interface{}
		}{
			{"compartments", tx.Where("dispenser_id IN (?)", dispenserIDs), &Compartment{}},
			{"dispensers", tx.Where("device_id IN (?)", deviceIDs), &Dispenser{}},
			{"devices", tx.Where("senior_id = ?", seniorID), &Device{}},
			{"prescriptions", tx.Where("senior_id = ?", seniorID), &Prescription{}},
			{"symptoms", tx.Where("senior_id = ?", seniorID), &Symptom{}},
			{"user links", tx.Where("senior_id = ?", seniorID), &UserSenior{}},
		}
		for _, step := range steps {
			if err := step.query.Delete(step.model).Error; err != nil {
				return fmt.Errorf("failed to delete %s: %w", step.name, err)
			}
		}

		return tx.Delete(&senior).Error
	})
}
