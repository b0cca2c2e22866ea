package endpoint

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/serenacare/serena-api/model"
	"github.com/serenacare/serena-api/util"
	"gorm.io/gorm"
)

type createSeniorRequest struct {
	ID        string `json:"id" binding:"required" example:"12345678901"`
	Name      string `json:"name" binding:"required" example:"Maria Souza"`
	BirthDate string `json:"birth_date" binding:"required" example:"15/03/1945"`
	DeviceID  string `json:"device_id" binding:"required" example:"D1"`
}

// updateSeniorRequest lists the senior fields a client may change.
type updateSeniorRequest struct {
	Name      *string `json:"name"`
	BirthDate *string `json:"birth_date"`
}

type seniorResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BirthDate string    `json:"birth_date"`
	CreatedAt time.Time `json:"created_at"`
	DeviceID  *string   `json:"device_id"`
}

func newSeniorResponse(s model.Senior, deviceID string) seniorResponse {
	resp := seniorResponse{ID: s.ID, Name: s.Name, BirthDate: s.BirthDate, CreatedAt: s.CreatedAt}
	if deviceID != "" {
		resp.DeviceID = &deviceID
	}
	return resp
}

// seniorResponses attaches each senior's device id with a single extra query.
func seniorResponses(db *gorm.DB, seniors []model.Senior) ([]seniorResponse, error) {
	ids := make([]string, 0, len(seniors))
	for _, s := range seniors {
		ids = append(ids, s.ID)
	}
	deviceBySenior := make(map[string]string, len(seniors))
	if len(ids) > 0 {
		var devices []model.Device
		if err := db.Where("senior_id IN ?", ids).Find(&devices).Error; err != nil {
			return nil, err
		}
		for _, d := range devices {
			if _, seen := deviceBySenior[d.SeniorID]; !seen {
				deviceBySenior[d.SeniorID] = d.ID
			}
		}
	}
	out := make([]seniorResponse, 0, len(seniors))
	for _, s := range seniors {
		out = append(out, newSeniorResponse(s, deviceBySenior[s.ID]))
	}
	return out, nil
}

// ListSeniors godoc
// @Summary      List seniors
// @Tags         Senior
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=[]seniorResponse}
// @Router       /senior [get]
func ListSeniors(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	var seniors []model.Senior
	if err := db.Order("name").Find(&seniors).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve seniors", Err: err})
		return
	}
	resp, err := seniorResponses(db, seniors)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve devices", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Seniors retrieved", Data: resp})
}

// ListSeniorsByUser godoc
// @Summary      Seniors linked to a user
// @Tags         Senior
// @Produce      json
// @Security     BearerAuth
// @Param        user_id path string true "User ID"
// @Success      200 {object} util.APIResponse{data=[]seniorResponse}
// @Router       /senior/by_user/{user_id} [get]
func ListSeniorsByUser(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	userID, ok := getPathParam(c, "user_id", "user ID")
	if !ok {
		return
	}
	var seniors []model.Senior
	err := db.Where("id IN (?)", db.Model(&model.UserSenior{}).Select("senior_id").Where("user_id = ?", userID)).
		Order("name").Find(&seniors).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve seniors", Err: err})
		return
	}
	resp, err := seniorResponses(db, seniors)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve devices", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Seniors retrieved", Data: resp})
}

// GetSenior godoc
// @Summary      Get a senior
// @Tags         Senior
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Senior ID"
// @Success      200 {object} util.APIResponse{data=seniorResponse}
// @Failure      404 {object} util.APIResponse "Senior not found"
// @Router       /senior/{id} [get]
func GetSenior(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	id, ok := getPathParam(c, "id", "senior ID")
	if !ok {
		return
	}
	senior, err := firstOrNotFound[model.Senior](db, "senior", "id = ?", id)
	if err != nil {
		util.CallAppError(c, "Failed to retrieve senior", err)
		return
	}
	resp, err := seniorResponses(db, []model.Senior{senior})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve device", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Senior retrieved", Data: resp[0]})
}

// GetSeniorByDevice godoc
// @Summary      Senior monitored by a device
// @Tags         Senior
// @Produce      json
// @Security     BearerAuth
// @Param        device_id path string true "Device ID"
// @Success      200 {object} util.APIResponse "senior_id"
// @Failure      404 {object} util.APIResponse "Device not found"
// @Router       /senior/by_device/{device_id} [get]
func GetSeniorByDevice(c *gin.Context) {
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
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Senior retrieved", Data: gin.H{"senior_id": device.SeniorID}})
}

// validateNewSenior runs every check that must pass before the device chain is written.
func validateNewSenior(db *gorm.DB, req createSeniorRequest) error {
	if !model.ValidSeniorID(req.ID) {
		return fmt.Errorf("senior id must have exactly 11 digits: %w", util.ErrValidation)
	}
	if _, err := model.ParseBirthDate(req.BirthDate); err != nil {
		return fmt.Errorf("birth_date must be DD/MM/YYYY: %w", util.ErrValidation)
	}
	taken, err := exists[model.Senior](db, "id = ?", req.ID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("senior %s already exists: %w", req.ID, util.ErrConflict)
	}
	bound, err := exists[model.Device](db, "id = ?", req.DeviceID)
	if err != nil {
		return err
	}
	if bound {
		return fmt.Errorf("device %s already assigned to another senior: %w", req.DeviceID, util.ErrConflict)
	}
	return nil
}

// CreateSenior godoc
// @Summary      Register a senior
// @Description  Creates the senior with its device, dispenser and 14 empty compartments in one transaction, and links the caller to the senior.
// @Tags         Senior
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body createSeniorRequest true "Senior"
// @Success      201 {object} util.APIResponse{data=seniorResponse}
// @Failure      400 {object} util.APIResponse "Invalid identifier, date, or device already bound"
// @Router       /senior [post]
func CreateSenior(c *gin.Context) {
	var req createSeniorRequest
	if !bindJSONOrRespond(c, &req, "Invalid senior payload") {
		return
	}
	db, user, ok := requestScope(c)
	if !ok {
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	req.DeviceID = strings.TrimSpace(req.DeviceID)
	req.BirthDate = strings.TrimSpace(req.BirthDate)

	if err := validateNewSenior(db, req); err != nil {
		util.CallAppError(c, "Cannot register senior", err)
		return
	}

	out, err := model.ProvisionSenior(db, model.SeniorProvision{
		Senior:      model.Senior{ID: req.ID, Name: util.NormalizeName(req.Name), BirthDate: req.BirthDate},
		DeviceID:    req.DeviceID,
		LinkUserIDs: []string{user.ID},
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost a race with a concurrent create for the same senior or device
		err = fmt.Errorf("senior %s or device %s already registered: %w", req.ID, req.DeviceID, util.ErrConflict)
	}
	if err != nil {
		util.CallAppError(c, "Failed to register senior", err)
		return
	}
	util.CallSuccessCreated(c, util.APISuccessParams{
		Msg:  "Senior registered",
		Data: newSeniorResponse(out.Senior, out.Device.ID),
	})
}

// UpdateSenior godoc
// @Summary      Update a senior
// @Tags         Senior
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Senior ID"
// @Param        request body updateSeniorRequest true "Fields to change"
// @Success      200 {object} util.APIResponse{data=seniorResponse}
// @Failure      403 {object} util.APIResponse "Not linked to this senior"
// @Failure      404 {object} util.APIResponse "Senior not found"
// @Router       /senior/{id} [put]
func UpdateSenior(c *gin.Context) {
	var req updateSeniorRequest
	if !bindJSONOrRespond(c, &req, "Invalid senior payload") {
		return
	}
	db, user, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := getPathParam(c, "id", "senior ID")
	if !ok {
		return
	}

	senior, err := firstOrNotFound[model.Senior](db, "senior", "id = ?", id)
	if err != nil {
		util.CallAppError(c, "Failed to retrieve senior", err)
		return
	}
	allowed, err := canAccessSenior(db, user, senior.ID)
	if !authorizeOrRespond(c, user, allowed, err, "senior "+senior.ID) {
		return
	}

	if req.Name != nil {
		name := util.NormalizeName(*req.Name)
		if name == "" {
			util.CallUserError(c, util.APIErrorParams{Msg: "Invalid senior payload", Err: fmt.Errorf("name cannot be empty: %w", util.ErrValidation)})
			return
		}
		senior.Name = name
	}
	if birth := trimmed(req.BirthDate); birth != nil {
		if _, err := model.ParseBirthDate(*birth); err != nil {
			util.CallUserError(c, util.APIErrorParams{Msg: "Invalid senior payload", Err: fmt.Errorf("birth_date must be DD/MM/YYYY: %w", util.ErrValidation)})
			return
		}
		senior.BirthDate = *birth
	}
	if err := db.Save(&senior).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update senior", Err: err})
		return
	}
	resp, err := seniorResponses(db, []model.Senior{senior})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve device", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Senior updated", Data: resp[0]})
}

// DeleteSenior godoc
// @Summary      Delete a senior
// @Description  Removes the senior with its device chain, prescriptions, symptoms and user links.
// @Tags         Senior
// @Security     BearerAuth
// @Param        id path string true "Senior ID"
// @Success      204 "Senior deleted"
// @Failure      403 {object} util.APIResponse "Not linked to this senior"
// @Failure      404 {object} util.APIResponse "Senior not found"
// @Router       /senior/{id} [delete]
func DeleteSenior(c *gin.Context) {
	db, user, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := getPathParam(c, "id", "senior ID")
	if !ok {
		return
	}

	senior, err := firstOrNotFound[model.Senior](db, "senior", "id = ?", id)
	if err != nil {
		util.CallAppError(c, "Failed to delete senior", err)
		return
	}
	allowed, err := canAccessSenior(db, user, senior.ID)
	if !authorizeOrRespond(c, user, allowed, err, "senior "+senior.ID) {
		return
	}

	if err := model.DeleteSeniorCascade(db, senior.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Senior not found", Err: fmt.Errorf("senior %s: %w", id, util.ErrNotFound)})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete senior", Err: err})
		return
	}
	util.CallSuccessNoContent(c)
}
