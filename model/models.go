package model

import (
	"fmt"

	"gorm.io/gorm"
)

// AllModels lists every table the service owns, in dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Senior{},
		&UserSenior{},
		&Device{},
		&Dispenser{},
		&Medication{},
		&Compartment{},
		&Prescription{},
		&Symptom{},
		&Report{},
		&SecurityLog{},
	}
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
