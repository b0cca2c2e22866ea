package endpoint

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/serenacare/serena-api/model"
	"github.com/serenacare/serena-api/util"
	"gorm.io/gorm"
)

type dispenserRequest struct {
	DeviceID string `json:"device_id" binding:"required" example:"D1"`
}

// ensureDeviceFree checks the device exists and has no dispenser other than exceptID.
func ensureDeviceFree(db *gorm.DB, deviceID, exceptID string) error {
	if _, err := firstOrNotFound[model.Device](db, "device", "id = ?", deviceID); err != nil {
		return err
	}
	taken, err := exists[model.Dispenser](db, "device_id = ? AND id <> ?", deviceID, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("device %s already has a dispenser: %w", deviceID, util.ErrConflict)
	}
	return nil
}

// ListDispensers godoc
// @Summary      List dispensers
// @Tags         Dispenser
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=[]model.Dispenser}
// @Router       /dispenser [get]
func ListDispensers(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	var dispensers []model.Dispenser
	if err := db.Order("device_id").Find(&dispensers).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve dispensers", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Dispensers retrieved", Data: dispensers})
}

// GetDispenser godoc
// @Summary      Get a dispenser
// @Tags         Dispenser
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Dispenser ID"
// @Success      200 {object} util.APIResponse{data=model.Dispenser}
// @Failure      404 {object} util.APIResponse "Dispenser not found"
// @Router       /dispenser/{id} [get]
func GetDispenser(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	id, ok := getPathParam(c, "id", "dispenser ID")
	if !ok {
		return
	}
	dispenser, err := firstOrNotFound[model.Dispenser](db, "dispenser", "id = ?", id)
	if err != nil {
		util.CallAppError(c, "Failed to retrieve dispenser", err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Dispenser retrieved", Data: dispenser})
}

// CreateDispenser godoc
// @Summary      Create a dispenser
// @Description  Attach a dispenser with 14 empty compartments to a device that has none
// @Tags         Dispenser
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dispenserRequest true "Dispenser"
// @Success      201 {object} util.APIResponse{data=model.Dispenser}
// @Failure      400 {object} util.APIResponse "Device already has a dispenser"
// @Failure      404 {object} util.APIResponse "Device not found"
// @Router       /dispenser [post]
func CreateDispenser(c *gin.Context) {
	var req dispenserRequest
	if !bindJSONOrRespond(c, &req, "Invalid dispenser payload") {
		return
	}
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	deviceID := strings.TrimSpace(req.DeviceID)

	var dispenser model.Dispenser
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := ensureDeviceFree(tx, deviceID, ""); err != nil {
			return err
		}
		dispenser = model.Dispenser{DeviceID: deviceID}
		if err := tx.Create(&dispenser).Error; err != nil {
			return fmt.Errorf("failed to create dispenser: %w", err)
		}
		compartments := model.NewCompartments(dispenser.ID, nil)
		if err := tx.Create(&compartments).Error; err != nil {
			return fmt.Errorf("failed to create compartments: %w", err)
		}
		return nil
	})
	if err != nil {
		util.CallAppError(c, "Failed to create dispenser", err)
		return
	}
	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Dispenser created", Data: dispenser})
}

// UpdateDispenser godoc
// @Summary      Move a dispenser to another device
// @Tags         Dispenser
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Dispenser ID"
// @Param        request body dispenserRequest true "Dispenser"
// @Success      200 {object} util.APIResponse{data=model.Dispenser}
// @Failure      400 {object} util.APIResponse "Device already has a dispenser"
// @Failure      404 {object} util.APIResponse "Dispenser or device not found"
// @Router       /dispenser/{id} [put]
func UpdateDispenser(c *gin.Context) {
	var req dispenserRequest
	if !bindJSONOrRespond(c, &req, "Invalid dispenser payload") {
		return
	}
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	id, ok := getPathParam(c, "id", "dispenser ID")
	if !ok {
		return
	}
	dispenser, err := firstOrNotFound[model.Dispenser](db, "dispenser", "id = ?", id)
	if err != nil {
		util.CallAppError(c, "Failed to retrieve dispenser", err)
		return
	}
	deviceID := strings.TrimSpace(req.DeviceID)
	if err := ensureDeviceFree(db, deviceID, dispenser.ID); err != nil {
		util.CallAppError(c, "Failed to update dispenser", err)
		return
	}
	dispenser.DeviceID = deviceID
	if err := db.Save(&dispenser).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update dispenser", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Dispenser updated", Data: dispenser})
}

// DeleteDispenser godoc
// @Summary      Delete a dispenser and its compartments
// @Tags         Dispenser
// @Security     BearerAuth
// @Param        id path string true "Dispenser ID"
// @Success      204 "Dispenser deleted"
// @Failure      404 {object} util.APIResponse "Dispenser not found"
// @Router       /dispenser/{id} [delete]
func DeleteDispenser(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	id, ok := getPathParam(c, "id", "dispenser ID")
	if !ok {
		return
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		dispenser, err := firstOrNotFound[model.Dispenser](tx, "dispenser", "id = ?", id)
		if err != nil {
			return err
		}
		if err := tx.Where("dispenser_id = ?", dispenser.ID).Delete(&model.Compartment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&dispenser).Error
	})
	if err != nil {
		util.CallAppError(c, "Failed to delete dispenser", err)
		return
	}
	util.CallSuccessNoContent(c)
}

// dispenserContents answers both content lookups once the dispenser is known.
func dispenserContents(c *gin.Context, db *gorm.DB, dispenser model.Dispenser) {
	contents, err := compartmentContents(db, dispenser.ID)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve compartments", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Dispenser contents retrieved", Data: contents})
}

// GetDispenserByDevice godoc
// @Summary      Dispenser contents by device
// @Tags         Dispenser
// @Produce      json
// @Security     BearerAuth
// @Param        device_id path string true "Device ID"
// @Success      200 {object} util.APIResponse{data=[]compartmentContent}
// @Failure      404 {object} util.APIResponse "Dispenser not found"
// @Router       /dispenser/by_device/{device_id} [get]
func GetDispenserByDevice(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	deviceID, ok := getPathParam(c, "device_id", "device ID")
	if !ok {
		return
	}
	dispenser, err := firstOrNotFound[model.Dispenser](db, "dispenser", "device_id = ?", deviceID)
	if err != nil {
		util.CallAppError(c, "Failed to retrieve dispenser", err)
		return
	}
	dispenserContents(c, db, dispenser)
}

// GetDispenserBySenior godoc
// @Summary      Dispenser contents by senior
// @Tags         Dispenser
// @Produce      json
// @Security     BearerAuth
// @Param        senior_id path string true "Senior ID"
// @Success      200 {object} util.APIResponse{data=[]compartmentContent}
// @Failure      404 {object} util.APIResponse "Device or dispenser not found"
// @Router       /dispenser/by_senior/{senior_id} [get]
func GetDispenserBySenior(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	seniorID, ok := getPathParam(c, "senior_id", "senior ID")
	if !ok {
		return
	}
	device, err := firstOrNotFound[model.Device](db, "device", "senior_id = ?", seniorID)
	if err != nil {
		util.CallAppError(c, "Failed to retrieve device", err)
		return
	}
	dispenser, err := firstOrNotFound[model.Dispenser](db, "dispenser", "device_id = ?", device.ID)
	if err != nil {
		util.CallAppError(c, "Failed to retrieve dispenser", err)
		return
	}
	dispenserContents(c, db, dispenser)
}
