package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestValidSeniorID(t *testing.T) {
	assert.True(t, ValidSeniorID("12345678901"))
	assert.False(t, ValidSeniorID("1234567890"))
	assert.False(t, ValidSeniorID("123456789012"))
	assert.False(t, ValidSeniorID("1234567890a"))
	assert.False(t, ValidSeniorID(""))
}

func TestNewCompartments_ReservedSlotsStayEmpty(t *testing.T) {
	fill := map[int]CompartmentFill{
		1:  {MedicationID: "med-1", Quantity: 5},
		12: {MedicationID: "med-2", Quantity: 5},
		14: {MedicationID: "med-3", Quantity: 5},
	}
	cs := NewCompartments("disp-1", fill)
	require.Len(t, cs, CompartmentsPerDispenser)

	assert.True(t, cs[0].Filled())
	assert.Equal(t, 5, cs[0].Quantity)
	for _, c := range cs[CompartmentsPerDispenser-ReservedCompartments:] {
		assert.Nil(t, c.MedicationID)
		assert.Zero(t, c.Quantity)
	}
	for i, c := range cs {
		assert.Equal(t, i+1, c.Position)
		assert.Equal(t, "disp-1", c.DispenserID)
	}
}

func TestProvisionSenior_CreatesFullChain(t *testing.T) {
	db := setupTestDB(t, "provision")
	user := User{Name: "Carla", Email: "carla@serena.com", Password: "x", Role: RoleCaregiver}
	require.NoError(t, db.Create(&user).Error)

	out, err := ProvisionSenior(db, SeniorProvision{
		Senior:      Senior{ID: "12345678901", Name: "José", BirthDate: "01/01/1940"},
		DeviceID:    "D1",
		LinkUserIDs: []string{user.ID},
	})
	require.NoError(t, err)

	assert.Equal(t, "D1", out.Device.ID)
	assert.Equal(t, DeviceStatusActive, out.Device.Status)
	assert.Equal(t, "D1", out.Dispenser.DeviceID)
	assert.Len(t, out.Compartments, CompartmentsPerDispenser)
	assert.Equal(t, int64(CompartmentsPerDispenser), countRows(t, db, &Compartment{}, "dispenser_id = ?", out.Dispenser.ID))

	linked, err := UserHasSenior(db, user.ID, "12345678901")
	require.NoError(t, err)
	assert.True(t, linked)
}

func TestProvisionSenior_RollsBackOnFailure(t *testing.T) {
	db := setupTestDB(t, "provision_rollback")
	require.NoError(t, db.Create(&Device{ID: "D1", SeniorID: "99999999999"}).Error)

	_, err := ProvisionSenior(db, SeniorProvision{
		Senior:   Senior{ID: "12345678901", Name: "José", BirthDate: "01/01/1940"},
		DeviceID: "D1",
	})
	require.Error(t, err)

	assert.Zero(t, countRows(t, db, &Senior{}, "id = ?", "12345678901"))
	assert.Zero(t, countRows(t, db, &Dispenser{}, ""))
	assert.Zero(t, countRows(t, db, &Compartment{}, ""))
}

func TestDeleteSeniorCascade(t *testing.T) {
	db := setupTestDB(t, "cascade")
	med := Medication{Name: "AAS"}
	require.NoError(t, db.Create(&med).Error)
	_, err := ProvisionSenior(db, SeniorProvision{
		Senior:      Senior{ID: "12345678901", Name: "José", BirthDate: "01/01/1940"},
		DeviceID:    "D1",
		LinkUserIDs: []string{"u1"},
	})
	require.NoError(t, err)
	require.NoError(t, db.Create(&Symptom{SeniorID: "12345678901", Name: "Tosse", PainLevel: 1}).Error)
	require.NoError(t, db.Create(&Prescription{SeniorID: "12345678901", MedicationID: med.ID, DoctorID: "d1"}).Error)

	require.NoError(t, DeleteSeniorCascade(db, "12345678901"))

	for _, m := range []interface{}{&Senior{}, &Device{}, &Dispenser{}, &Compartment{}, &Symptom{}, &Prescription{}, &UserSenior{}} {
		assert.Zero(t, countRows(t, db, m, ""))
	}
	assert.Equal(t, int64(1), countRows(t, db, &Medication{}, ""))

	err = DeleteSeniorCascade(db, "12345678901")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestNotEndedBefore(t *testing.T) {
	db := setupTestDB(t, "not_ended_before")
	for _, end := range []string{"2024-05-09", "2024-05-10", "2024-06-01"} {
		p := Prescription{SeniorID: "12345678901", MedicationID: "m", DoctorID: "d", StartDate: mustDate(t, "2024-01-01"), EndDate: mustDate(t, end)}
		require.NoError(t, db.Create(&p).Error)
	}

	var got []Prescription
	day := mustDate(t, "2024-05-10").Add(15 * time.Hour)
	require.NoError(t, db.Scopes(NotEndedBefore(day)).Order("end_date").Find(&got).Error)
	require.Len(t, got, 2)
	assert.True(t, got[0].EndDate.Equal(mustDate(t, "2024-05-10")))
	assert.True(t, got[1].EndDate.Equal(mustDate(t, "2024-06-01")))
}

func TestProvisionSenior_DuplicateDeviceRollsBack(t *testing.T) {
	db := setupTestDB(t, "provision_duplicate_device")
	_, err := ProvisionSenior(db, SeniorProvision{Senior: Senior{ID: "12345678901", Name: "Maria", BirthDate: "01/01/1940"}, DeviceID: "D1"})
	require.NoError(t, err)

	_, err = ProvisionSenior(db, SeniorProvision{Senior: Senior{ID: "10987654321", Name: "João", BirthDate: "02/02/1950"}, DeviceID: "D1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), err.Error())
	assert.Equal(t, int64(0), countRows(t, db, &Senior{}, "id = ?", "10987654321"))
	assert.Equal(t, int64(1), countRows(t, db, &Dispenser{}, ""))
}
