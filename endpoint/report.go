package endpoint

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/serenacare/serena-api/model"
	"github.com/serenacare/serena-api/util"
)

type reportRequest struct {
	Content string `json:"content" binding:"required" example:"Paciente estável, sem queixas."`
}

// ReportHandlers serve the consolidated senior report.
type ReportHandlers struct {
	Assembler ReportAssembler
}

// ListReports godoc
// @Summary      List my reports
// @Tags         Reports
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=[]model.Report}
// @Router       /reports [get]
func ListReports(c *gin.Context) {
	db, user, ok := requestScope(c)
	if !ok {
		return
	}
	var reports []model.Report
	if err := db.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&reports).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve reports", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Reports retrieved", Data: reports})
}

func loadOwnReport(c *gin.Context) (model.Report, bool) {
	db, user, ok := requestScope(c)
	if !ok {
		return model.Report{}, false
	}
	id, ok := getPathParam(c, "id", "report ID")
	if !ok {
		return model.Report{}, false
	}
	report, err := firstOrNotFound[model.Report](db, "report", "id = ?", id)
	if err != nil {
		util.CallAppError(c, "Failed to retrieve report", err)
		return model.Report{}, false
	}
	if !authorizeOrRespond(c, user, canAccessReport(user, report), nil, "report "+report.ID) {
		return model.Report{}, false
	}
	return report, true
}

// GetReport godoc
// @Summary      Get a report
// @Tags         Reports
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Report ID"
// @Success      200 {object} util.APIResponse{data=model.Report}
// @Failure      403 {object} util.APIResponse "Not the author"
// @Failure      404 {object} util.APIResponse "Report not found"
// @Router       /reports/{id} [get]
func GetReport(c *gin.Context) {
	report, ok := loadOwnReport(c)
	if !ok {
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Report retrieved", Data: report})
}

// CreateReport godoc
// @Summary      Write a report
// @Tags         Reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body reportRequest true "Report"
// @Success      201 {object} util.APIResponse{data=model.Report}
// @Failure      400 {object} util.APIResponse "Invalid payload"
// @Router       /reports [post]
func CreateReport(c *gin.Context) {
	var req reportRequest
	if !bindJSONOrRespond(c, &req, "Invalid report payload") {
		return
	}
	db, user, ok := requestScope(c)
	if !ok {
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid report payload", Err: fmt.Errorf("content cannot be empty: %w", util.ErrValidation)})
		return
	}
	report := model.Report{UserID: user.ID, Content: content}
	if err := db.Create(&report).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create report", Err: err})
		return
	}
	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Report created", Data: report})
}

// DeleteReport godoc
// @Summary      Delete a report
// @Tags         Reports
// @Security     BearerAuth
// @Param        id path string true "Report ID"
// @Success      204 "Report deleted"
// @Failure      403 {object} util.APIResponse "Not the author"
// @Failure      404 {object} util.APIResponse "Report not found"
// @Router       /reports/{id} [delete]
func DeleteReport(c *gin.Context) {
	report, ok := loadOwnReport(c)
	if !ok {
		return
	}
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	if err := db.Delete(&report).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete report", Err: err})
		return
	}
	util.CallSuccessNoContent(c)
}

// ConsolidatedReport godoc
// @Summary      Consolidated senior report
// @Description  Age, linked doctors, prescriptions, symptoms and the day's dose history of a senior.
// @Description  The caller must be linked to the senior.
// @Tags         Reports
// @Produce      json
// @Security     BearerAuth
// @Param        senior_id path string true "Senior ID"
// @Success      200 {object} util.APIResponse{data=ConsolidatedReport}
// @Failure      403 {object} util.APIResponse "Not linked to the senior"
// @Failure      404 {object} util.APIResponse "Senior not found"
// @Router       /reports/report/{senior_id} [get]
func (h ReportHandlers) ConsolidatedReport(c *gin.Context) {
	db, user, ok := requestScope(c)
	if !ok {
		return
	}
	seniorID, ok := getPathParam(c, "senior_id", "senior ID")
	if !ok {
		return
	}
	if _, err := firstOrNotFound[model.Senior](db, "senior", "id = ?", seniorID); err != nil {
		util.CallAppError(c, "Failed to build report", err)
		return
	}
	allowed, err := canAccessSenior(db, user, seniorID)
	if !authorizeOrRespond(c, user, allowed, err, "senior "+seniorID) {
		return
	}
	report, err := h.Assembler.Assemble(db, seniorID)
	if err != nil {
		util.CallAppError(c, "Failed to build report", err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Report generated", Data: report})
}
