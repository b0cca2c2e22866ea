package endpoint

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/serenacare/serena-api/model"
	"github.com/serenacare/serena-api/util"
	"gorm.io/gorm"
)

type medicationRequest struct {
	Name        string `json:"name" binding:"required" example:"Paracetamol"`
	Description string `json:"description" example:"Analgésico e antitérmico"`
}

// ListMedications godoc
// @Summary      List medications
// @Tags         Medications
// @Produce      json
// @Security     BearerAuth
// @Param        search query string false "Name contains"
// @Success      200 {object} util.APIResponse{data=[]model.Medication}
// @Router       /medications [get]
func ListMedications(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	q := db.Order("name")
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	var meds []model.Medication
	if err := q.Find(&meds).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve medications", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Medications retrieved", Data: meds})
}

// GetMedication godoc
// @Summary      Get a medication
// @Tags         Medications
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Medication ID"
// @Success      200 {object} util.APIResponse{data=model.Medication}
// @Failure      404 {object} util.APIResponse "Medication not found"
// @Router       /medications/{id} [get]
func GetMedication(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	id, ok := getPathParam(c, "id", "medication ID")
	if !ok {
		return
	}
	med, err := firstOrNotFound[model.Medication](db, "medication", "id = ?", id)
	if err != nil {
		util.CallAppError(c, "Failed to retrieve medication", err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Medication retrieved", Data: med})
}

// CreateMedication godoc
// @Summary      Create a medication
// @Tags         Medications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body medicationRequest true "Medication"
// @Success      201 {object} util.APIResponse{data=model.Medication}
// @Failure      400 {object} util.APIResponse "Invalid payload"
// @Router       /medications [post]
func CreateMedication(c *gin.Context) {
	var req medicationRequest
	if !bindJSONOrRespond(c, &req, "Invalid medication payload") {
		return
	}
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	med := model.Medication{Name: util.NormalizeName(req.Name), Description: strings.TrimSpace(req.Description)}
	if med.Name == "" {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid medication payload", Err: fmt.Errorf("name cannot be empty: %w", util.ErrValidation)})
		return
	}
	if err := db.Create(&med).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create medication", Err: err})
		return
	}
	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Medication created", Data: med})
}

// UpdateMedication godoc
// @Summary      Update a medication
// @Tags         Medications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Medication ID"
// @Param        request body medicationRequest true "Medication"
// @Success      200 {object} util.APIResponse{data=model.Medication}
// @Failure      404 {object} util.APIResponse "Medication not found"
// @Router       /medications/{id} [put]
func UpdateMedication(c *gin.Context) {
	var req medicationRequest
	if !bindJSONOrRespond(c, &req, "Invalid medication payload") {
		return
	}
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	id, ok := getPathParam(c, "id", "medication ID")
	if !ok {
		return
	}
	med, err := firstOrNotFound[model.Medication](db, "medication", "id = ?", id)
	if err != nil {
		util.CallAppError(c, "Failed to retrieve medication", err)
		return
	}
	med.Name = util.NormalizeName(req.Name)
	med.Description = strings.TrimSpace(req.Description)
	if err := db.Save(&med).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update medication", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Medication updated", Data: med})
}

// DeleteMedication godoc
// @Summary      Delete a medication
// @Description  Compartments holding the medication are emptied
// @Tags         Medications
// @Security     BearerAuth
// @Param        id path string true "Medication ID"
// @Success      204 "Medication deleted"
// @Failure      400 {object} util.APIResponse "Medication is prescribed"
// @Failure      404 {object} util.APIResponse "Medication not found"
// @Router       /medications/{id} [delete]
func DeleteMedication(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	id, ok := getPathParam(c, "id", "medication ID")
	if !ok {
		return
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		med, err := firstOrNotFound[model.Medication](tx, "medication", "id = ?", id)
		if err != nil {
			return err
		}
		prescribed, err := exists[model.Prescription](tx, "medication_id = ?", med.ID)
		if err != nil {
			return err
		}
		if prescribed {
			return fmt.Errorf("medication %s is referenced by prescriptions: %w", med.ID, util.ErrConflict)
		}
		if err := tx.Model(&model.Compartment{}).Where("medication_id = ?", med.ID).
			Updates(map[string]interface{}{"medication_id": nil, "quantity": 0}).Error; err != nil {
			return err
		}
		return tx.Delete(&med).Error
	})
	if err != nil {
		util.CallAppError(c, "Failed to delete medication", err)
		return
	}
	util.CallSuccessNoContent(c)
}
