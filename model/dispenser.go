package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// CompartmentsPerDispenser is the number of slots in a pill dispenser.
	CompartmentsPerDispenser = 14
	// ReservedCompartments trailing slots are left unfilled.
	ReservedCompartments = 3
)

// Dispenser belongs to one device and owns its compartments.
type Dispenser struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	DeviceID string `gorm:"type:varchar(64);uniqueIndex;not null" json:"device_id"`
}

func (d *Dispenser) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// Compartment is one medication slot. A nil MedicationID means the slot is unfilled.
type Compartment struct {
	CompartmentID string  `gorm:"column:compartment_id;primaryKey;type:varchar(36)" json:"compartment_id"`
	DispenserID   string  `gorm:"type:varchar(36);index;not null" json:"dispenser_id"`
	Position      int     `gorm:"not null" json:"position"`
	MedicationID  *string `gorm:"type:varchar(36)" json:"medication_id"`
	Quantity      int     `gorm:"not null;default:0" json:"quantity"`
}

func (c *Compartment) BeforeCreate(tx *gorm.DB) error {
	if c.CompartmentID == "" {
		c.CompartmentID = uuid.NewString()
	}
	return nil
}

// Filled reports whether the compartment holds a medication.
func (c Compartment) Filled() bool {
	return c.MedicationID != nil && *c.MedicationID != ""
}

// NewCompartments builds the full set of compartments for a dispenser.
// Reserved trailing positions are never filled, whatever fill says.
func NewCompartments(dispenserID string, fill map[int]CompartmentFill) []Compartment {
	compartments := make([]Compartment, 0, CompartmentsPerDispenser)
	for pos := 1; pos <= CompartmentsPerDispenser; pos++ {
		c := Compartment{DispenserID: dispenserID, Position: pos}
		if f, ok := fill[pos]; ok && pos <= CompartmentsPerDispenser-ReservedCompartments && f.MedicationID != "" {
			medID := f.MedicationID
			c.MedicationID = &medID
			c.Quantity = f.Quantity
		}
		compartments = append(compartments, c)
	}
	return compartments
}
