package endpoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/serenacare/serena-api/model"
	"github.com/serenacare/serena-api/util"
	"gorm.io/gorm"
)

type compartmentContent struct {
	CompartmentID  string  `json:"compartment_id"`
	Position       int     `json:"position"`
	MedicationID   *string `json:"medication_id"`
	MedicationName *string `json:"medication_name"`
	Quantity       int     `json:"quantity"`
}

type dispenserOverview struct {
	ID           string               `json:"id"`
	Compartments []compartmentContent `json:"compartments"`
}

type deviceOverview struct {
	DeviceID  string             `json:"device_id"`
	SeniorID  string             `json:"senior_id"`
	Status    string             `json:"status"`
	LastSync  time.Time          `json:"last_sync"`
	Dispenser *dispenserOverview `json:"dispenser"`
}

// updateDeviceRequest is the device heartbeat. Every call refreshes last_sync.
type updateDeviceRequest struct {
	Status *string `json:"status" binding:"omitempty,oneof=active inactive"`
}

// compartmentContents loads a dispenser's compartments in position order with medication names resolved.
func compartmentContents(db *gorm.DB, dispenserID string) ([]compartmentContent, error) {
	var compartments []model.Compartment
	if err := db.Where("dispenser_id = ?", dispenserID).Order("position").Find(&compartments).Error; err != nil {
		return nil, err
	}

	medIDs := make([]string, 0, len(compartments))
	for _, c := range compartments {
		if c.Filled() {
			medIDs = append(medIDs, *c.MedicationID)
		}
	}
	names := make(map[string]string, len(medIDs))
	if len(medIDs) > 0 {
		var meds []model.Medication
		if err := db.Where("id IN ?", medIDs).Find(&meds).Error; err != nil {
			return nil, err
		}
		for _, m := range meds {
			names[m.ID] = m.Name
		}
	}

	out := make([]compartmentContent, 0, len(compartments))
	for _, c := range compartments {
		item := compartmentContent{
			CompartmentID: c.CompartmentID,
			Position:      c.Position,
			MedicationID:  c.MedicationID,
			Quantity:      c.Quantity,
		}
		if c.Filled() {
			if name, ok := names[*c.MedicationID]; ok {
				item.MedicationName = &name
			}
		}
		out = append(out, item)
	}
	return out, nil
}

func loadDeviceOverview(db *gorm.DB, device model.Device) (deviceOverview, error) {
	overview := deviceOverview{
		DeviceID: device.ID,
		SeniorID: device.SeniorID,
		Status:   device.Status,
		LastSync: device.LastSync,
	}
	var dispenser model.Dispenser
	err := db.Where("device_id = ?", device.ID).First(&dispenser).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return overview, nil
	}
	if err != nil {
		return overview, err
	}
	contents, err := compartmentContents(db, dispenser.ID)
	if err != nil {
		return overview, err
	}
	overview.Dispenser = &dispenserOverview{ID: dispenser.ID, Compartments: contents}
	return overview, nil
}

// GetDevice godoc
// @Summary      Device overview
// @Description  Device status with its dispenser and compartment contents
// @Tags         Device
// @Produce      json
// @Security     BearerAuth
// @Param        device_id path string true "Device ID"
// @Success      200 {object} util.APIResponse{data=deviceOverview}
// @Failure      404 {object} util.APIResponse "Device not found"
// @Router       /device/{device_id} [get]
func GetDevice(c *gin.Context) {
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
	overview, err := loadDeviceOverview(db, device)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve dispenser", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Device retrieved", Data: overview})
}

// GetDeviceBySenior godoc
// @Summary      Device monitoring a senior
// @Tags         Device
// @Produce      json
// @Security     BearerAuth
// @Param        senior_id path string true "Senior ID"
// @Success      200 {object} util.APIResponse{data=deviceOverview}
// @Failure      404 {object} util.APIResponse "Senior has no device"
// @Router       /device/by_senior/{senior_id} [get]
func GetDeviceBySenior(c *gin.Context) {
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
	overview, err := loadDeviceOverview(db, device)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve dispenser", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Device retrieved", Data: overview})
}

// UpdateDevice godoc
// @Summary      Device heartbeat
// @Description  Refresh last_sync and optionally change the device status
// @Tags         Device
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        device_id path string true "Device ID"
// @Param        request body updateDeviceRequest false "Status change"
// @Success      200 {object} util.APIResponse{data=model.Device}
// @Failure      404 {object} util.APIResponse "Device not found"
// @Router       /device/{device_id} [patch]
func UpdateDevice(c *gin.Context) {
	var req updateDeviceRequest
	// An empty body is a plain heartbeat.
	if c.Request.ContentLength != 0 && !bindJSONOrRespond(c, &req, "Invalid device payload") {
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
		util.CallAppError(c, "Failed to retrieve device", err)
		return
	}
	if req.Status != nil {
		if !model.ValidDeviceStatus(*req.Status) {
			util.CallUserError(c, util.APIErrorParams{Msg: "Invalid device payload", Err: fmt.Errorf("unknown status %q: %w", *req.Status, util.ErrValidation)})
			return
		}
		device.Status = *req.Status
	}
	device.LastSync = time.Now().UTC()
	if err := db.Save(&device).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update device", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Device updated", Data: device})
}
