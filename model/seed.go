package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	AdminEmail    = "admin@serena.com"
	adminName     = "Admin"
	adminPassword = "admin123"

	DemoDoctorEmail = "dra.geriatra@serena.com"
	demoDoctorName  = "Dra. Helena Geriatra"
	demoDoctorPass  = "doctor123"
	DemoSeniorID    = "12345678901"
	DemoDeviceID    = "SERENA-DEMO-0001"
)

// ReferenceMedications is the catalog inserted into an empty medications table.
var ReferenceMedications = []Medication{
	{Name: "Paracetamol", Description: "Analgésico e antitérmico"},
	{Name: "Dipirona", Description: "Analgésico e antitérmico"},
	{Name: "Ibuprofeno", Description: "Anti-inflamatório"},
	{Name: "Amoxicilina", Description: "Antibiótico"},
	{Name: "Losartana", Description: "Anti-hipertensivo"},
	{Name: "Metformina", Description: "Antidiabético oral"},
	{Name: "Omeprazol", Description: "Inibidor de bomba de próton"},
	{Name: "Sinvastatina", Description: "Redutor de colesterol"},
	{Name: "AAS", Description: "Antiplaquetário"},
	{Name: "Ranitidina", Description: "Antiácido"},
}

// Bootstrap migrates the schema and inserts baseline data. It is safe to run
// on every start.
func Bootstrap(db *gorm.DB, withDemo bool) error {
	if err := Migrate(db); err != nil {
		return err
	}
	if err := SeedMedications(db); err != nil {
		return err
	}
	if err := SeedAdminUser(db); err != nil {
		return err
	}
	if withDemo {
		return SeedDemoData(db)
	}
	return nil
}

// SeedMedications inserts the reference catalog when no medication exists.
func SeedMedications(db *gorm.DB) error {
	var count int64
	if err := db.Model(&Medication{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count medications: %w", err)
	}
	if count > 0 {
		return nil
	}

	meds := make([]Medication, len(ReferenceMedications))
	copy(meds, ReferenceMedications)
	if err := db.Create(&meds).Error; err != nil {
		return fmt.Errorf("failed to seed medications: %w", err)
	}
	logrus.WithField("count", len(meds)).Info("seeded medication catalog")
	return nil
}

// SeedAdminUser creates the default caregiver account if it is missing.
func SeedAdminUser(db *gorm.DB) error {
	_, err := seedUser(db, User{Name: adminName, Email: AdminEmail, Role: RoleCaregiver}, adminPassword)
	return err
}

// SeedDemoData adds a demonstration doctor, senior and device chain,
// prescriptions, symptoms and a report. Each group is skipped when present.
func SeedDemoData(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var admin User
		if err := tx.Where("email = ?", AdminEmail).First(&admin).Error; err != nil {
			return fmt.Errorf("demo seed needs the admin user: %w", err)
		}

		doctor, err := seedUser(tx, User{Name: demoDoctorName, Email: DemoDoctorEmail, Role: RoleDoctor}, demoDoctorPass)
		if err != nil {
			return err
		}

		var meds []Medication
		if err := tx.Order("name").Find(&meds).Error; err != nil {
			return fmt.Errorf("failed to load medications: %w", err)
		}
		if len(meds) == 0 {
			return fmt.Errorf("demo seed needs the medication catalog")
		}

		if err := seedDemoSenior(tx, meds, admin.ID, doctor.ID); err != nil {
			return err
		}
		if err := seedDemoPrescriptions(tx, meds, doctor.ID); err != nil {
			return err
		}
		if err := seedDemoSymptoms(tx); err != nil {
			return err
		}
		return seedDemoReport(tx, admin.ID)
	})
}

func seedUser(db *gorm.DB, user User, plain string) (User, error) {
	var existing User
	err := db.Where("email = ?", user.Email).First(&existing).Error
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password for %s: %w", user.Email, err)
	}
	user.Password = string(hash)
	if err := db.Create(&user).Error; err != nil {
		return User{}, fmt.Errorf("failed to seed user %s: %w", user.Email, err)
	}
	logrus.WithField("email", user.Email).Info("seeded user")
	return user, nil
}

func seedDemoSenior(tx *gorm.DB, meds []Medication, userIDs ...string) error {
	var existing Senior
	err := tx.Where("id = ?", DemoSeniorID).First(&existing).Error
	if err == nil {
		for _, userID := range userIDs {
			link := UserSenior{UserID: userID, SeniorID: DemoSeniorID}
			if err := tx.Where(link).FirstOrCreate(&link).Error; err != nil {
				return fmt.Errorf("failed to seed user link: %w", err)
			}
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var deviceCount int64
	if err := tx.Model(&Device{}).Where("id = ?", DemoDeviceID).Count(&deviceCount).Error; err != nil {
		return err
	}
	if deviceCount > 0 {
		return fmt.Errorf("demo device %s is bound to another senior", DemoDeviceID)
	}

	fill := make(map[int]CompartmentFill)
	for pos := 1; pos <= CompartmentsPerDispenser-ReservedCompartments; pos++ {
		fill[pos] = CompartmentFill{MedicationID: meds[(pos-1)%len(meds)].ID, Quantity: 10}
	}
	_, err = ProvisionSenior(tx, SeniorProvision{
		Senior:      Senior{ID: DemoSeniorID, Name: "Maria Aparecida Souza", BirthDate: "15/03/1945"},
		DeviceID:    DemoDeviceID,
		LinkUserIDs: userIDs,
		Fill:        fill,
	})
	return err
}

func seedDemoPrescriptions(tx *gorm.DB, meds []Medication, doctorID string) error {
	var count int64
	if err := tx.Model(&Prescription{}).Where("senior_id = ?", DemoSeniorID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	prescriptions := []Prescription{
		{
			SeniorID: DemoSeniorID, MedicationID: meds[0].ID, DoctorID: doctorID,
			Dosage: "1 comprimido", Frequency: "08:00, 20:00",
			StartDate: today.AddDate(0, 0, -7), EndDate: today.AddDate(0, 1, 0),
			Description: "Tomar após as refeições",
		},
		{
			SeniorID: DemoSeniorID, MedicationID: meds[len(meds)-1].ID, DoctorID: doctorID,
			Dosage: "500mg", Frequency: "8 14 20",
			StartDate: today.AddDate(0, 0, -3), EndDate: today.AddDate(0, 0, 14),
			Description: "Uso contínuo",
		},
	}
	if err := tx.Create(&prescriptions).Error; err != nil {
		return fmt.Errorf("failed to seed prescriptions: %w", err)
	}
	return nil
}

func seedDemoSymptoms(tx *gorm.DB) error {
	var count int64
	if err := tx.Model(&Symptom{}).Where("senior_id = ?", DemoSeniorID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	symptoms := []Symptom{
		{SeniorID: DemoSeniorID, Name: "Dor de cabeça", Description: "Dor leve pela manhã", PainLevel: 2, CreatedAt: now.Add(-26 * time.Hour)},
		{SeniorID: DemoSeniorID, Name: "Tontura", Description: "Ao levantar da cama", PainLevel: 6, CreatedAt: now.Add(-2 * time.Hour)},
	}
	if err := tx.Create(&symptoms).Error; err != nil {
		return fmt.Errorf("failed to seed symptoms: %w", err)
	}
	return nil
}

func seedDemoReport(tx *gorm.DB, userID string) error {
	var count int64
	if err := tx.Model(&Report{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	report := Report{UserID: userID, Content: "Paciente estável, adesão regular à medicação."}
	if err := tx.Create(&report).Error; err != nil {
		return fmt.Errorf("failed to seed report: %w", err)
	}
	return nil
}
