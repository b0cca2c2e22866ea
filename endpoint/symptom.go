package endpoint

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/serenacare/serena-api/model"
	"github.com/serenacare/serena-api/util"
	"gorm.io/gorm"
)

type createSymptomRequest struct {
	SeniorID    string `json:"senior_id" binding:"required" example:"12345678901"`
	Name        string `json:"name" binding:"required" example:"Dor de cabeça"`
	Description string `json:"description"`
	PainLevel   int    `json:"pain_level" example:"4"`
}

// symptomRequest is both the PUT whitelist and the device report body.
type symptomRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	PainLevel   int    `json:"pain_level"`
}

func newSymptom(seniorID string, req symptomRequest) (model.Symptom, error) {
	name := util.NormalizeName(req.Name)
	if name == "" {
		return model.Symptom{}, fmt.Errorf("name cannot be empty: %w", util.ErrValidation)
	}
	if !model.ValidPainLevel(req.PainLevel) {
		return model.Symptom{}, fmt.Errorf("pain_level must be between %d and %d: %w", model.MinPainLevel, model.MaxPainLevel, util.ErrValidation)
	}
	return model.Symptom{
		SeniorID:    seniorID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		PainLevel:   req.PainLevel,
	}, nil
}

// ListSymptoms godoc
// @Summary      List symptoms
// @Description  Symptoms of seniors linked to the caller, newest first
// @Tags         Symptoms
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=[]model.Symptom}
// @Router       /symptoms [get]
func ListSymptoms(c *gin.Context) {
	db, user, ok := requestScope(c)
	if !ok {
		return
	}
	var list []model.Symptom
	if err := db.Scopes(symptomScope(user)).Order("created_at DESC").Find(&list).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve symptoms", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Symptoms retrieved", Data: list})
}

func loadAuthorizedSymptom(c *gin.Context) (*gorm.DB, model.Symptom, bool) {
	db, user, ok := requestScope(c)
	if !ok {
		return nil, model.Symptom{}, false
	}
	id, ok := getPathParam(c, "id", "symptom ID")
	if !ok {
		return nil, model.Symptom{}, false
	}
	s, err := firstOrNotFound[model.Symptom](db, "symptom", "id = ?", id)
	if err != nil {
		util.CallAppError(c, "Failed to retrieve symptom", err)
		return nil, model.Symptom{}, false
	}
	allowed, err := canAccessSymptom(db, user, s)
	if !authorizeOrRespond(c, user, allowed, err, "symptom "+s.ID) {
		return nil, model.Symptom{}, false
	}
	return db, s, true
}

// GetSymptom godoc
// @Summary      Get a symptom
// @Tags         Symptoms
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Symptom ID"
// @Success      200 {object} util.APIResponse{data=model.Symptom}
// @Failure      403 {object} util.APIResponse "Not enough permissions"
// @Failure      404 {object} util.APIResponse "Symptom not found"
// @Router       /symptoms/{id} [get]
func GetSymptom(c *gin.Context) {
	_, s, ok := loadAuthorizedSymptom(c)
	if !ok {
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Symptom retrieved", Data: s})
}

// CreateSymptom godoc
// @Summary      Record a symptom
// @Tags         Symptoms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body createSymptomRequest true "Symptom"
// @Success      201 {object} util.APIResponse{data=model.Symptom}
// @Failure      400 {object} util.APIResponse "Invalid pain level"
// @Failure      403 {object} util.APIResponse "Not linked to this senior"
// @Failure      404 {object} util.APIResponse "Senior not found"
// @Router       /symptoms [post]
func CreateSymptom(c *gin.Context) {
	var req createSymptomRequest
	if !bindJSONOrRespond(c, &req, "Invalid symptom payload") {
		return
	}
	db, user, ok := requestScope(c)
	if !ok {
		return
	}
	senior, err := firstOrNotFound[model.Senior](db, "senior", "id = ?", strings.TrimSpace(req.SeniorID))
	if err != nil {
		util.CallAppError(c, "Failed to record symptom", err)
		return
	}
	allowed, err := canAccessSenior(db, user, senior.ID)
	if !authorizeOrRespond(c, user, allowed, err, "senior "+senior.ID) {
		return
	}
	symptom, err := newSymptom(senior.ID, symptomRequest{Name: req.Name, Description: req.Description, PainLevel: req.PainLevel})
	if err != nil {
		util.CallAppError(c, "Invalid symptom payload", err)
		return
	}
	if err := db.Create(&symptom).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to record symptom", Err: err})
		return
	}
	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Symptom recorded", Data: symptom})
}

// UpdateSymptom godoc
// @Summary      Update a symptom
// @Tags         Symptoms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Symptom ID"
// @Param        request body symptomRequest true "Symptom"
// @Success      200 {object} util.APIResponse{data=model.Symptom}
// @Failure      400 {object} util.APIResponse "Invalid pain level"
// @Failure      403 {object} util.APIResponse "Not enough permissions"
// @Failure      404 {object} util.APIResponse "Symptom not found"
// @Router       /symptoms/{id} [put]
func UpdateSymptom(c *gin.Context) {
	var req symptomRequest
	if !bindJSONOrRespond(c, &req, "Invalid symptom payload") {
		return
	}
	db, s, ok := loadAuthorizedSymptom(c)
	if !ok {
		return
	}
	changed, err := newSymptom(s.SeniorID, req)
	if err != nil {
		util.CallAppError(c, "Invalid symptom payload", err)
		return
	}
	s.Name = changed.Name
	s.Description = changed.Description
	s.PainLevel = changed.PainLevel
	if err := db.Save(&s).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update symptom", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Symptom updated", Data: s})
}

// DeleteSymptom godoc
// @Summary      Delete a symptom
// @Tags         Symptoms
// @Security     BearerAuth
// @Param        id path string true "Symptom ID"
// @Success      204 "Symptom deleted"
// @Failure      403 {object} util.APIResponse "Not enough permissions"
// @Failure      404 {object} util.APIResponse "Symptom not found"
// @Router       /symptoms/{id} [delete]
func DeleteSymptom(c *gin.Context) {
	db, s, ok := loadAuthorizedSymptom(c)
	if !ok {
		return
	}
	if err := db.Delete(&s).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete symptom", Err: err})
		return
	}
	util.CallSuccessNoContent(c)
}

// ListSymptomsBySenior godoc
// @Summary      Symptoms of a senior
// @Tags         Symptoms
// @Produce      json
// @Security     BearerAuth
// @Param        senior_id path string true "Senior ID"
// @Success      200 {object} util.APIResponse{data=[]model.Symptom}
// @Failure      403 {object} util.APIResponse "Not linked to this senior"
// @Failure      404 {object} util.APIResponse "Senior not found"
// @Router       /symptoms/by_senior/{senior_id} [get]
func ListSymptomsBySenior(c *gin.Context) {
	db, user, ok := requestScope(c)
	if !ok {
		return
	}
	seniorID, ok := getPathParam(c, "senior_id", "senior ID")
	if !ok {
		return
	}
	if _, err := firstOrNotFound[model.Senior](db, "senior", "id = ?", seniorID); err != nil {
		util.CallAppError(c, "Failed to retrieve symptoms", err)
		return
	}
	allowed, err := canAccessSenior(db, user, seniorID)
	if !authorizeOrRespond(c, user, allowed, err, "senior "+seniorID) {
		return
	}
	var list []model.Symptom
	if err := db.Where("senior_id = ?", seniorID).Order("created_at DESC").Find(&list).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve symptoms", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Symptoms retrieved", Data: list})
}

// CreateSymptomByDevice godoc
// @Summary      Record a symptom from a device
// @Description  The symptom is attached to the senior the device monitors
// @Tags         Symptoms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        device_id path string true "Device ID"
// @Param        request body symptomRequest true "Symptom"
// @Success      201 {object} util.APIResponse{data=model.Symptom}
// @Failure      400 {object} util.APIResponse "Invalid pain level"
// @Failure      404 {object} util.APIResponse "Device not found"
// @Router       /symptoms/by_device/{device_id} [post]
func CreateSymptomByDevice(c *gin.Context) {
	var req symptomRequest
	if !bindJSONOrRespond(c, &req, "Invalid symptom payload") {
		return
	}
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
		util.CallAppError(c, "Failed to record symptom", err)
		return
	}
	symptom, err := newSymptom(device.SeniorID, req)
	if err != nil {
		util.CallAppError(c, "Invalid symptom payload", err)
		return
	}
	if err := db.Create(&symptom).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to record symptom", Err: err})
		return
	}
	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Symptom recorded", Data: symptom})
}
