package endpoint

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/serenacare/serena-api/middleware"
	"github.com/serenacare/serena-api/model"
	"github.com/serenacare/serena-api/util"
	"gorm.io/gorm"
)

// Authorization rules. Every rule is evaluated on every request that reaches
// a single row; list endpoints apply the matching scope instead.

// canAccessSenior: the user is linked to the senior through user_seniors.
func canAccessSenior(db *gorm.DB, user model.User, seniorID string) (bool, error) {
	return model.UserHasSenior(db, user.ID, seniorID)
}

// canAccessPrescription: the user wrote the prescription or is linked to its senior.
func canAccessPrescription(db *gorm.DB, user model.User, p model.Prescription) (bool, error) {
	if p.DoctorID == user.ID {
		return true, nil
	}
	return canAccessSenior(db, user, p.SeniorID)
}

// canAccessSymptom: the user is linked to the symptom's senior.
func canAccessSymptom(db *gorm.DB, user model.User, s model.Symptom) (bool, error) {
	return canAccessSenior(db, user, s.SeniorID)
}

// canAccessReport: only the author.
func canAccessReport(user model.User, r model.Report) bool {
	return r.UserID == user.ID
}

// canModifyUser: a user edits only their own account.
func canModifyUser(user, target model.User) bool {
	return user.ID == target.ID
}

// canManageUsers: doctors and the bootstrap administrator.
func canManageUsers(user model.User) bool {
	return user.Role == model.RoleDoctor || user.IsAdministrator()
}

// canDeleteUser: the account owner or a user manager.
func canDeleteUser(user, target model.User) bool {
	return canModifyUser(user, target) || canManageUsers(user)
}

// canAssignRole: only user managers hand out the doctor role.
func canAssignRole(user model.User, role string) bool {
	return role != model.RoleDoctor || canManageUsers(user)
}

func linkedSeniorIDs(db *gorm.DB, user model.User) *gorm.DB {
	return db.Model(&model.UserSenior{}).Select("senior_id").Where("user_id = ?", user.ID)
}

// prescriptionScope limits a prescription query to rows the user can access.
func prescriptionScope(user model.User) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("doctor_id = ? OR senior_id IN (?)", user.ID, linkedSeniorIDs(db.Session(&gorm.Session{NewDB: true}), user))
	}
}

// symptomScope limits a symptom query to seniors linked to the user.
func symptomScope(user model.User) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("senior_id IN (?)", linkedSeniorIDs(db.Session(&gorm.Session{NewDB: true}), user))
	}
}

// authorizeOrRespond turns a predicate result into a 403 or 500 response.
func authorizeOrRespond(c *gin.Context, user model.User, allowed bool, err error, resource string) bool {
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to check permissions", Err: err})
		return false
	}
	if !allowed {
		middleware.GetAudit(c).ForbiddenAccess(user.ID, c.ClientIP(), resource)
		util.CallForbidden(c, util.APIErrorParams{
			Msg: "Not enough permissions",
			Err: fmt.Errorf("%s: %w", resource, util.ErrForbidden),
		})
		return false
	}
	return true
}
