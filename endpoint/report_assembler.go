package endpoint

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/serenacare/serena-api/model"
	"gorm.io/gorm"
)

const (
	reportDateLayout = "02/01/2006"
	reportTimeLayout = "15:04"

	SeverityMild     = "Leve"
	SeverityModerate = "Moderado"
	SeveritySevere   = "Forte"

	SpecialtyGeriatrics = "Geriatria"
	SpecialtyGeneral    = "Médico"
)

type ConsolidatedReport struct {
	Name              string               `json:"name"`
	Age               *int                 `json:"age"`
	Identifier        string               `json:"identifier"`
	Doctors           []ReportDoctor       `json:"doctors"`
	Prescriptions     []ReportPrescription `json:"prescriptions"`
	Symptoms          []ReportSymptom      `json:"symptoms"`
	MedicationHistory []DoseEntry          `json:"medicationHistory"`
}

type ReportDoctor struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

type ReportPrescription struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
}

type ReportSymptom struct {
	Name     string `json:"name"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Severity string `json:"severity"`
}

// DoseEntry is one scheduled dose and whether it was taken.
type DoseEntry struct {
	Name      string `json:"name"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Taken     bool   `json:"taken"`
	Simulated bool   `json:"simulated"`
}

// DoseHistorySource produces the dose history of one prescription for a day.
type DoseHistorySource interface {
	DoseHistory(p model.Prescription, medicationName string, day time.Time) []DoseEntry
}

// SimulatedDoseHistory derives doses from the prescription frequency. No dose
// log is kept, so taken alternates starting at true and every entry is marked simulated.
type SimulatedDoseHistory struct{}

func (SimulatedDoseHistory) DoseHistory(p model.Prescription, medicationName string, day time.Time) []DoseEntry {
	slots := ParseFrequencySlots(p.Frequency)
	out := make([]DoseEntry, 0, len(slots))
	for i, slot := range slots {
		out = append(out, DoseEntry{
			Name:      medicationName,
			Date:      day.Format(reportDateLayout),
			Time:      slot,
			Taken:     i%2 == 0,
			Simulated: true,
		})
	}
	return out
}

// CalculateAge returns completed years between a DD/MM/YYYY birth date and now,
// or nil when the date does not parse.
func CalculateAge(birthDate string, now time.Time) *int {
	birth, err := model.ParseBirthDate(strings.TrimSpace(birthDate))
	if err != nil {
		return nil
	}
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return &age
}

func SeverityForPainLevel(level int) string {
	switch {
	case level <= 2:
		return SeverityMild
	case level <= 5:
		return SeverityModerate
	default:
		return SeveritySevere
	}
}

func DoctorSpecialty(name string) string {
	if strings.Contains(strings.ToLower(name), "geri") {
		return SpecialtyGeriatrics
	}
	return SpecialtyGeneral
}

// ParseFrequencySlots turns a prescription frequency into HH:MM slots.
// "08:00, 20:00" is read as a list of times; "8 14 20" or "8,14,20" as hours.
// Tokens that are neither are dropped.
func ParseFrequencySlots(freq string) []string {
	freq = strings.TrimSpace(freq)
	if freq == "" {
		return nil
	}
	var slots []string
	if strings.Contains(freq, ":") {
		for _, tok := range strings.Split(freq, ",") {
			tok = strings.TrimSpace(tok)
			t, err := time.Parse(reportTimeLayout, tok)
			if err != nil {
				continue
			}
			slots = append(slots, t.Format(reportTimeLayout))
		}
		return slots
	}
	for _, tok := range strings.Fields(strings.ReplaceAll(freq, ",", " ")) {
		if !isDigits(tok) {
			continue
		}
		h, err := strconv.Atoi(tok)
		if err != nil || h > 23 {
			continue
		}
		slots = append(slots, fmt.Sprintf("%02d:00", h))
	}
	return slots
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// reportInputs is everything the report is built from, already loaded.
type reportInputs struct {
	Senior        model.Senior
	Doctors       []model.User
	Prescriptions []model.Prescription
	Medications   map[string]model.Medication
	Symptoms      []model.Symptom
}

// ReportAssembler builds the consolidated report of a senior.
type ReportAssembler struct {
	Doses DoseHistorySource
	Now   func() time.Time
}

func NewReportAssembler() ReportAssembler {
	return ReportAssembler{Doses: SimulatedDoseHistory{}, Now: time.Now}
}

// Assemble loads the senior's data and builds the report. A missing senior
// yields an error wrapping util.ErrNotFound.
func (a ReportAssembler) Assemble(db *gorm.DB, seniorID string) (ConsolidatedReport, error) {
	in, err := loadReportInputs(db, seniorID)
	if err != nil {
		return ConsolidatedReport{}, err
	}
	return a.build(in), nil
}

func loadReportInputs(db *gorm.DB, seniorID string) (reportInputs, error) {
	var in reportInputs
	senior, err := firstOrNotFound[model.Senior](db, "senior", "id = ?", seniorID)
	if err != nil {
		return in, err
	}
	in.Senior = senior

	linked := db.Model(&model.UserSenior{}).Select("user_id").Where("senior_id = ?", seniorID)
	if err := db.Where("id IN (?) AND role = ?", linked, model.RoleDoctor).Order("name").Find(&in.Doctors).Error; err != nil {
		return in, fmt.Errorf("failed to load doctors: %w", err)
	}
	if err := db.Where("senior_id = ?", seniorID).Order("created_at").Find(&in.Prescriptions).Error; err != nil {
		return in, fmt.Errorf("failed to load prescriptions: %w", err)
	}

	in.Medications = map[string]model.Medication{}
	if len(in.Prescriptions) > 0 {
		ids := make([]string, 0, len(in.Prescriptions))
		for _, p := range in.Prescriptions {
			ids = append(ids, p.MedicationID)
		}
		var meds []model.Medication
		if err := db.Where("id IN ?", ids).Find(&meds).Error; err != nil {
			return in, fmt.Errorf("failed to load medications: %w", err)
		}
		for _, m := range meds {
			in.Medications[m.ID] = m
		}
	}

	if err := db.Where("senior_id = ?", seniorID).Order("created_at DESC").Find(&in.Symptoms).Error; err != nil {
		return in, fmt.Errorf("failed to load symptoms: %w", err)
	}
	return in, nil
}

func (a ReportAssembler) build(in reportInputs) ConsolidatedReport {
	now := time.Now()
	if a.Now != nil {
		now = a.Now()
	}
	doses := a.Doses
	if doses == nil {
		doses = SimulatedDoseHistory{}
	}

	report := ConsolidatedReport{
		Name:              in.Senior.Name,
		Age:               CalculateAge(in.Senior.BirthDate, now),
		Identifier:        in.Senior.ID,
		Doctors:           make([]ReportDoctor, 0, len(in.Doctors)),
		Prescriptions:     make([]ReportPrescription, 0, len(in.Prescriptions)),
		Symptoms:          make([]ReportSymptom, 0, len(in.Symptoms)),
		MedicationHistory: []DoseEntry{},
	}
	for _, d := range in.Doctors {
		report.Doctors = append(report.Doctors, ReportDoctor{Name: d.Name, Specialty: DoctorSpecialty(d.Name)})
	}
	for _, p := range in.Prescriptions {
		medName := in.Medications[p.MedicationID].Name
		report.Prescriptions = append(report.Prescriptions, ReportPrescription{Name: medName, Dosage: p.Dosage, Frequency: p.Frequency})
		report.MedicationHistory = append(report.MedicationHistory, doses.DoseHistory(p, medName, now)...)
	}

	symptoms := append([]model.Symptom(nil), in.Symptoms...)
	sort.SliceStable(symptoms, func(i, j int) bool { return symptoms[i].CreatedAt.After(symptoms[j].CreatedAt) })
	for _, s := range symptoms {
		report.Symptoms = append(report.Symptoms, ReportSymptom{
			Name:     s.Name,
			Date:     s.CreatedAt.Format(reportDateLayout),
			Time:     s.CreatedAt.Format(reportTimeLayout),
			Severity: SeverityForPainLevel(s.PainLevel),
		})
	}
	return report
}
