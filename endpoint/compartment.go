package endpoint

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/serenacare/serena-api/model"
	"github.com/serenacare/serena-api/util"
	"gorm.io/gorm"
)

type createCompartmentRequest struct {
	DispenserID  string  `json:"dispenser_id" binding:"required"`
	Position     int     `json:"position" binding:"required,min=1,max=14" example:"1"`
	MedicationID *string `json:"medication_id"`
	Quantity     int     `json:"quantity" binding:"min=0" example:"10"`
}

// putCompartmentRequest replaces the contents of a compartment. A null
// medication_id empties it.
type putCompartmentRequest struct {
	MedicationID *string `json:"medication_id"`
	Quantity     int     `json:"quantity" binding:"min=0"`
}

// patchCompartmentRequest changes only the fields present.
type patchCompartmentRequest struct {
	MedicationID *string `json:"medication_id"`
	Quantity     *int    `json:"quantity" binding:"omitempty,min=0"`
}

// normalizeMedicationRef checks a medication reference. An empty id means no medication.
func normalizeMedicationRef(db *gorm.DB, medID *string) (*string, error) {
	ref := trimmed(medID)
	if ref == nil || *ref == "" {
		return nil, nil
	}
	if _, err := firstOrNotFound[model.Medication](db, "medication", "id = ?", *ref); err != nil {
		return nil, err
	}
	return ref, nil
}

func validQuantity(q int) error {
	if q < 0 {
		return fmt.Errorf("quantity must be zero or more: %w", util.ErrValidation)
	}
	return nil
}

// ListCompartments godoc
// @Summary      List compartments
// @Tags         Compartment
// @Produce      json
// @Security     BearerAuth
// @Param        dispenser_id query string false "Filter by dispenser"
// @Success      200 {object} util.APIResponse{data=[]model.Compartment}
// @Router       /compartment [get]
func ListCompartments(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	q := db.Order("dispenser_id").Order("position")
	if dispenserID := c.Query("dispenser_id"); dispenserID != "" {
		q = q.Where("dispenser_id = ?", dispenserID)
	}
	var compartments []model.Compartment
	if err := q.Find(&compartments).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve compartments", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Compartments retrieved", Data: compartments})
}

// GetCompartment godoc
// @Summary      Get a compartment
// @Tags         Compartment
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Compartment ID"
// @Success      200 {object} util.APIResponse{data=model.Compartment}
// @Failure      404 {object} util.APIResponse "Compartment not found"
// @Router       /compartment/{id} [get]
func GetCompartment(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	id, ok := getPathParam(c, "id", "compartment ID")
	if !ok {
		return
	}
	compartment, err := firstOrNotFound[model.Compartment](db, "compartment", "compartment_id = ?", id)
	if err != nil {
		util.CallAppError(c, "Failed to retrieve compartment", err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Compartment retrieved", Data: compartment})
}

// CreateCompartment godoc
// @Summary      Create a compartment
// @Tags         Compartment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body createCompartmentRequest true "Compartment"
// @Success      201 {object} util.APIResponse{data=model.Compartment}
// @Failure      400 {object} util.APIResponse "Invalid quantity or position"
// @Failure      404 {object} util.APIResponse "Dispenser or medication not found"
// @Router       /compartment [post]
func CreateCompartment(c *gin.Context) {
	var req createCompartmentRequest
	if !bindJSONOrRespond(c, &req, "Invalid compartment payload") {
		return
	}
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	if err := validQuantity(req.Quantity); err != nil {
		util.CallAppError(c, "Invalid compartment payload", err)
		return
	}
	if _, err := firstOrNotFound[model.Dispenser](db, "dispenser", "id = ?", req.DispenserID); err != nil {
		util.CallAppError(c, "Failed to create compartment", err)
		return
	}
	medID, err := normalizeMedicationRef(db, req.MedicationID)
	if err != nil {
		util.CallAppError(c, "Failed to create compartment", err)
		return
	}
	taken, err := exists[model.Compartment](db, "dispenser_id = ? AND position = ?", req.DispenserID, req.Position)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create compartment", Err: err})
		return
	}
	if taken {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Compartment position already used",
			Err: fmt.Errorf("position %d of dispenser %s: %w", req.Position, req.DispenserID, util.ErrConflict),
		})
		return
	}

	compartment := model.Compartment{
		DispenserID:  req.DispenserID,
		Position:     req.Position,
		MedicationID: medID,
		Quantity:     req.Quantity,
	}
	if err := db.Create(&compartment).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create compartment", Err: err})
		return
	}
	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Compartment created", Data: compartment})
}

// UpdateCompartment godoc
// @Summary      Replace compartment contents
// @Tags         Compartment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Compartment ID"
// @Param        request body putCompartmentRequest true "Contents"
// @Success      200 {object} util.APIResponse{data=model.Compartment}
// @Failure      400 {object} util.APIResponse "Invalid quantity"
// @Failure      404 {object} util.APIResponse "Compartment or medication not found"
// @Router       /compartment/{id} [put]
func UpdateCompartment(c *gin.Context) {
	var req putCompartmentRequest
	if !bindJSONOrRespond(c, &req, "Invalid compartment payload") {
		return
	}
	applyCompartmentChange(c, &req.MedicationID, &req.Quantity)
}

// PatchCompartment godoc
// @Summary      Change compartment contents
// @Description  Only fields present in the body are changed
// @Tags         Compartment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Compartment ID"
// @Param        request body patchCompartmentRequest true "Contents"
// @Success      200 {object} util.APIResponse{data=model.Compartment}
// @Failure      400 {object} util.APIResponse "Invalid quantity"
// @Failure      404 {object} util.APIResponse "Compartment or medication not found"
// @Router       /compartment/{id} [patch]
func PatchCompartment(c *gin.Context) {
	var req patchCompartmentRequest
	if !bindJSONOrRespond(c, &req, "Invalid compartment payload") {
		return
	}
	var medRef **string
	if req.MedicationID != nil {
		medRef = &req.MedicationID
	}
	applyCompartmentChange(c, medRef, req.Quantity)
}

// applyCompartmentChange writes the given fields. A nil pointer leaves the field untouched.
func applyCompartmentChange(c *gin.Context, medID **string, quantity *int) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	id, ok := getPathParam(c, "id", "compartment ID")
	if !ok {
		return
	}
	compartment, err := firstOrNotFound[model.Compartment](db, "compartment", "compartment_id = ?", id)
	if err != nil {
		util.CallAppError(c, "Failed to retrieve compartment", err)
		return
	}

	if medID != nil {
		ref, err := normalizeMedicationRef(db, *medID)
		if err != nil {
			util.CallAppError(c, "Failed to update compartment", err)
			return
		}
		compartment.MedicationID = ref
	}
	if quantity != nil {
		if err := validQuantity(*quantity); err != nil {
			util.CallAppError(c, "Invalid compartment payload", err)
			return
		}
		compartment.Quantity = *quantity
	}
	if err := db.Save(&compartment).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update compartment", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Compartment updated", Data: compartment})
}

// DeleteCompartment godoc
// @Summary      Delete a compartment
// @Tags         Compartment
// @Security     BearerAuth
// @Param        id path string true "Compartment ID"
// @Success      204 "Compartment deleted"
// @Failure      404 {object} util.APIResponse "Compartment not found"
// @Router       /compartment/{id} [delete]
func DeleteCompartment(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	id, ok := getPathParam(c, "id", "compartment ID")
	if !ok {
		return
	}
	compartment, err := firstOrNotFound[model.Compartment](db, "compartment", "compartment_id = ?", id)
	if err != nil {
		util.CallAppError(c, "Failed to delete compartment", err)
		return
	}
	if err := db.Delete(&compartment).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete compartment", Err: err})
		return
	}
	util.CallSuccessNoContent(c)
}
