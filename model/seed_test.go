package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBootstrap_Idempotent(t *testing.T) {
	db := setupTestDB(t, "bootstrap")

	require.NoError(t, Bootstrap(db, false))
	require.NoError(t, Bootstrap(db, false))

	assert.Equal(t, int64(1), countRows(t, db, &User{}, "email = ?", AdminEmail))
	assert.Equal(t, int64(len(ReferenceMedications)), countRows(t, db, &Medication{}, ""))
	assert.Equal(t, int64(10), countRows(t, db, &Medication{}, ""))
}

func TestSeedAdminUser_HashesPassword(t *testing.T) {
	db := setupTestDB(t, "seed_admin")
	require.NoError(t, SeedAdminUser(db))

	var admin User
	require.NoError(t, db.Where("email = ?", AdminEmail).First(&admin).Error)
	assert.Equal(t, RoleCaregiver, admin.Role)
	assert.NotEqual(t, adminPassword, admin.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(adminPassword)))
}

func TestSeedMedications_SkipsNonEmptyCatalog(t *testing.T) {
	db := setupTestDB(t, "seed_meds")
	require.NoError(t, db.Create(&Medication{Name: "Custom"}).Error)

	require.NoError(t, SeedMedications(db))
	assert.Equal(t, int64(1), countRows(t, db, &Medication{}, ""))
}

func TestSeedDemoData_Idempotent(t *testing.T) {
	db := setupTestDB(t, "seed_demo")

	require.NoError(t, Bootstrap(db, true))
	require.NoError(t, Bootstrap(db, true))

	assert.Equal(t, int64(1), countRows(t, db, &User{}, "email = ?", DemoDoctorEmail))
	assert.Equal(t, int64(1), countRows(t, db, &Senior{}, ""))
	assert.Equal(t, int64(1), countRows(t, db, &Device{}, ""))
	assert.Equal(t, int64(1), countRows(t, db, &Dispenser{}, ""))
	assert.Equal(t, int64(CompartmentsPerDispenser), countRows(t, db, &Compartment{}, ""))
	assert.Equal(t, int64(2), countRows(t, db, &Prescription{}, ""))
	assert.Equal(t, int64(2), countRows(t, db, &Symptom{}, ""))
	assert.Equal(t, int64(1), countRows(t, db, &Report{}, ""))
	assert.Equal(t, int64(2), countRows(t, db, &UserSenior{}, "senior_id = ?", DemoSeniorID))

	var reserved []Compartment
	require.NoError(t, db.Where("position > ?", CompartmentsPerDispenser-ReservedCompartments).Find(&reserved).Error)
	require.Len(t, reserved, ReservedCompartments)
	for _, c := range reserved {
		assert.False(t, c.Filled())
		assert.Zero(t, c.Quantity)
	}
	assert.Equal(t, int64(CompartmentsPerDispenser-ReservedCompartments), countRows(t, db, &Compartment{}, "medication_id IS NOT NULL"))
}
