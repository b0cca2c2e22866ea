package endpoint

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/serenacare/serena-api/model"
	"github.com/serenacare/serena-api/util"
	"gorm.io/gorm"
)

const invalidDateMsg = "Invalid date format. Use ISO 8601."

type createPrescriptionRequest struct {
	SeniorID     string `json:"senior_id" binding:"required" example:"12345678901"`
	MedicationID string `json:"medication_id" binding:"required"`
	// DoctorID defaults to the caller when the caller is a doctor.
	DoctorID    string `json:"doctor_id"`
	Dosage      string `json:"dosage" example:"500mg"`
	Frequency   string `json:"frequency" example:"08:00, 20:00"`
	StartDate   string `json:"start_date" binding:"required" example:"2024-01-01"`
	EndDate     string `json:"end_date" binding:"required" example:"2024-12-31"`
	Description string `json:"description"`
}

// updatePrescriptionRequest is the whitelist for PUT. The senior is fixed at creation.
type updatePrescriptionRequest struct {
	MedicationID string `json:"medication_id" binding:"required"`
	DoctorID     string `json:"doctor_id" binding:"required"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	StartDate    string `json:"start_date" binding:"required"`
	EndDate      string `json:"end_date" binding:"required"`
	Description  string `json:"description"`
}

type medicationRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type doctorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type prescriptionResponse struct {
	ID          string         `json:"id"`
	SeniorID    string         `json:"senior_id"`
	Medication  *medicationRef `json:"medication"`
	Doctor      *doctorRef     `json:"doctor"`
	Dosage      string         `json:"dosage"`
	Frequency   string         `json:"frequency"`
	StartDate   string         `json:"start_date"`
	EndDate     string         `json:"end_date"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
}

// prescriptionResponses resolves medications and doctors with one query each.
func prescriptionResponses(db *gorm.DB, list []model.Prescription) ([]prescriptionResponse, error) {
	medIDs := make([]string, 0, len(list))
	doctorIDs := make([]string, 0, len(list))
	for _, p := range list {
		medIDs = append(medIDs, p.MedicationID)
		doctorIDs = append(doctorIDs, p.DoctorID)
	}

	meds := map[string]model.Medication{}
	doctors := map[string]model.User{}
	if len(list) > 0 {
		var medRows []model.Medication
		if err := db.Where("id IN ?", medIDs).Find(&medRows).Error; err != nil {
			return nil, err
		}
		for _, m := range medRows {
			meds[m.ID] = m
		}
		var userRows []model.User
		if err := db.Where("id IN ?", doctorIDs).Find(&userRows).Error; err != nil {
			return nil, err
		}
		for _, u := range userRows {
			doctors[u.ID] = u
		}
	}

	out := make([]prescriptionResponse, 0, len(list))
	for _, p := range list {
		resp := prescriptionResponse{
			ID:          p.ID,
			SeniorID:    p.SeniorID,
			Dosage:      p.Dosage,
			Frequency:   p.Frequency,
			StartDate:   formatDate(p.StartDate),
			EndDate:     formatDate(p.EndDate),
			Description: p.Description,
			CreatedAt:   p.CreatedAt,
		}
		if m, ok := meds[p.MedicationID]; ok {
			resp.Medication = &medicationRef{ID: m.ID, Name: m.Name, Description: m.Description}
		}
		if d, ok := doctors[p.DoctorID]; ok {
			resp.Doctor = &doctorRef{ID: d.ID, Name: d.Name}
		}
		out = append(out, resp)
	}
	return out, nil
}

func respondPrescriptions(c *gin.Context, db *gorm.DB, list []model.Prescription) {
	resp, err := prescriptionResponses(db, list)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve prescriptions", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Prescriptions retrieved", Data: resp})
}

// parsePrescriptionPeriod parses both dates and rejects an end before the start.
func parsePrescriptionPeriod(start, end string) (time.Time, time.Time, error) {
	s, err := parseISODate(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := parseISODate(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if e.Before(s) {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date is before start_date: %w", util.ErrValidation)
	}
	return s, e, nil
}

// checkPrescriptionRefs verifies the medication exists and doctorID belongs to a doctor.
func checkPrescriptionRefs(db *gorm.DB, medicationID, doctorID string) error {
	if _, err := firstOrNotFound[model.Medication](db, "medication", "id = ?", medicationID); err != nil {
		return err
	}
	if _, err := firstOrNotFound[model.User](db, "doctor", "id = ? AND role = ?", doctorID, model.RoleDoctor); err != nil {
		return err
	}
	return nil
}

// ListPrescriptions godoc
// @Summary      List prescriptions
// @Description  Prescriptions written by the caller or belonging to seniors linked to the caller
// @Tags         Prescriptions
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=[]prescriptionResponse}
// @Router       /prescriptions [get]
func ListPrescriptions(c *gin.Context) {
	db, user, ok := requestScope(c)
	if !ok {
		return
	}
	var list []model.Prescription
	if err := db.Scopes(prescriptionScope(user)).Order("start_date DESC").Find(&list).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve prescriptions", Err: err})
		return
	}
	respondPrescriptions(c, db, list)
}

// GetPrescription godoc
// @Summary      Get a prescription
// @Tags         Prescriptions
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Prescription ID"
// @Success      200 {object} util.APIResponse{data=prescriptionResponse}
// @Failure      403 {object} util.APIResponse "Not enough permissions"
// @Failure      404 {object} util.APIResponse "Prescription not found"
// @Router       /prescriptions/{id} [get]
func GetPrescription(c *gin.Context) {
	db, p, ok := loadAuthorizedPrescription(c)
	if !ok {
		return
	}
	resp, err := prescriptionResponses(db, []model.Prescription{p})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve prescription", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Prescription retrieved", Data: resp[0]})
}

func loadAuthorizedPrescription(c *gin.Context) (*gorm.DB, model.Prescription, bool) {
	db, user, ok := requestScope(c)
	if !ok {
		return nil, model.Prescription{}, false
	}
	id, ok := getPathParam(c, "id", "prescription ID")
	if !ok {
		return nil, model.Prescription{}, false
	}
	p, err := firstOrNotFound[model.Prescription](db, "prescription", "id = ?", id)
	if err != nil {
		util.CallAppError(c, "Failed to retrieve prescription", err)
		return nil, model.Prescription{}, false
	}
	allowed, err := canAccessPrescription(db, user, p)
	if !authorizeOrRespond(c, user, allowed, err, "prescription "+p.ID) {
		return nil, model.Prescription{}, false
	}
	return db, p, true
}

// CreatePrescription godoc
// @Summary      Create a prescription
// @Tags         Prescriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body createPrescriptionRequest true "Prescription"
// @Success      201 {object} util.APIResponse{data=prescriptionResponse}
// @Failure      400 {object} util.APIResponse "Invalid date format"
// @Failure      404 {object} util.APIResponse "Senior, medication or doctor not found"
// @Router       /prescriptions [post]
func CreatePrescription(c *gin.Context) {
	var req createPrescriptionRequest
	if !bindJSONOrRespond(c, &req, "Invalid prescription payload") {
		return
	}
	db, user, ok := requestScope(c)
	if !ok {
		return
	}

	doctorID := strings.TrimSpace(req.DoctorID)
	if doctorID == "" {
		if user.Role != model.RoleDoctor {
			util.CallUserError(c, util.APIErrorParams{Msg: "Invalid prescription payload", Err: fmt.Errorf("doctor_id is required: %w", util.ErrValidation)})
			return
		}
		doctorID = user.ID
	}
	if _, err := firstOrNotFound[model.Senior](db, "senior", "id = ?", req.SeniorID); err != nil {
		util.CallAppError(c, "Failed to create prescription", err)
		return
	}
	if err := checkPrescriptionRefs(db, req.MedicationID, doctorID); err != nil {
		util.CallAppError(c, "Failed to create prescription", err)
		return
	}
	start, end, err := parsePrescriptionPeriod(req.StartDate, req.EndDate)
	if err != nil {
		util.CallAppError(c, invalidDateMsg, err)
		return
	}

	p := model.Prescription{
		SeniorID:     req.SeniorID,
		MedicationID: req.MedicationID,
		DoctorID:     doctorID,
		Dosage:       strings.TrimSpace(req.Dosage),
		Frequency:    strings.TrimSpace(req.Frequency),
		StartDate:    start,
		EndDate:      end,
		Description:  strings.TrimSpace(req.Description),
	}
	if err := db.Create(&p).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create prescription", Err: err})
		return
	}
	resp, err := prescriptionResponses(db, []model.Prescription{p})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve prescription", Err: err})
		return
	}
	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Prescription created", Data: resp[0]})
}

// UpdatePrescription godoc
// @Summary      Update a prescription
// @Tags         Prescriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Prescription ID"
// @Param        request body updatePrescriptionRequest true "Prescription"
// @Success      200 {object} util.APIResponse{data=prescriptionResponse}
// @Failure      400 {object} util.APIResponse "Invalid date format"
// @Failure      403 {object} util.APIResponse "Not enough permissions"
// @Failure      404 {object} util.APIResponse "Prescription, medication or doctor not found"
// @Router       /prescriptions/{id} [put]
func UpdatePrescription(c *gin.Context) {
	var req updatePrescriptionRequest
	if !bindJSONOrRespond(c, &req, "Invalid prescription payload") {
		return
	}
	db, p, ok := loadAuthorizedPrescription(c)
	if !ok {
		return
	}
	if err := checkPrescriptionRefs(db, req.MedicationID, req.DoctorID); err != nil {
		util.CallAppError(c, "Failed to update prescription", err)
		return
	}
	start, end, err := parsePrescriptionPeriod(req.StartDate, req.EndDate)
	if err != nil {
		util.CallAppError(c, invalidDateMsg, err)
		return
	}

	p.MedicationID = req.MedicationID
	p.DoctorID = req.DoctorID
	p.Dosage = strings.TrimSpace(req.Dosage)
	p.Frequency = strings.TrimSpace(req.Frequency)
	p.StartDate = start
	p.EndDate = end
	p.Description = strings.TrimSpace(req.Description)
	if err := db.Save(&p).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update prescription", Err: err})
		return
	}
	resp, err := prescriptionResponses(db, []model.Prescription{p})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve prescription", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Prescription updated", Data: resp[0]})
}

// DeletePrescription godoc
// @Summary      Delete a prescription
// @Tags         Prescriptions
// @Security     BearerAuth
// @Param        id path string true "Prescription ID"
// @Success      204 "Prescription deleted"
// @Failure      403 {object} util.APIResponse "Not enough permissions"
// @Failure      404 {object} util.APIResponse "Prescription not found"
// @Router       /prescriptions/{id} [delete]
func DeletePrescription(c *gin.Context) {
	db, p, ok := loadAuthorizedPrescription(c)
	if !ok {
		return
	}
	if err := db.Delete(&p).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete prescription", Err: err})
		return
	}
	util.CallSuccessNoContent(c)
}

// ListPrescriptionsBySenior godoc
// @Summary      Prescriptions of a senior
// @Tags         Prescriptions
// @Produce      json
// @Security     BearerAuth
// @Param        senior_id path string true "Senior ID"
// @Success      200 {object} util.APIResponse{data=[]prescriptionResponse}
// @Failure      404 {object} util.APIResponse "Senior not found"
// @Router       /prescriptions/by_senior/{senior_id} [get]
func ListPrescriptionsBySenior(c *gin.Context) {
	db, user, ok := requestScope(c)
	if !ok {
		return
	}
	seniorID, ok := getPathParam(c, "senior_id", "senior ID")
	if !ok {
		return
	}
	if _, err := firstOrNotFound[model.Senior](db, "senior", "id = ?", seniorID); err != nil {
		util.CallAppError(c, "Failed to retrieve prescriptions", err)
		return
	}
	var list []model.Prescription
	err := db.Scopes(prescriptionScope(user)).Where("senior_id = ?", seniorID).Order("start_date DESC").Find(&list).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve prescriptions", Err: err})
		return
	}
	respondPrescriptions(c, db, list)
}

// ListPrescriptionsByDevice godoc
// @Summary      Current prescriptions for a device
// @Description  Prescriptions of the device's senior that have not ended yet
// @Tags         Prescriptions
// @Produce      json
// @Security     BearerAuth
// @Param        device_id path string true "Device ID"
// @Success      200 {object} util.APIResponse{data=[]prescriptionResponse}
// @Failure      404 {object} util.APIResponse "Device not found"
// @Router       /prescriptions/by_device/{device_id} [get]
func ListPrescriptionsByDevice(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	deviceID, ok := getPathParam(c, "device_id", "device ID")
	if !ok {
		return
	}
	device, err := firstOrNotFound[model.Device](db, "device", "id = ?", deviceID)
	if err != nil {
		util.CallAppError(c, "Failed to retrieve device", err)
		return
	}
	var active []model.Prescription
	err = db.Where("senior_id = ?", device.SeniorID).
		Scopes(model.NotEndedBefore(time.Now().UTC())).
		Order("start_date").Find(&active).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve prescriptions", Err: err})
		return
	}
	respondPrescriptions(c, db, active)
}
