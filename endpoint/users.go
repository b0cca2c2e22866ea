package endpoint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/serenacare/serena-api/model"
	"github.com/serenacare/serena-api/util"
	"gorm.io/gorm"
)

type createUserRequest struct {
	Name     string `json:"name" binding:"required" example:"Dra. Helena"`
	Email    string `json:"email" binding:"required,email" example:"helena@serena.com"`
	Password string `json:"password" binding:"required,min=6" example:"s3cret!"`
	Role     string `json:"role" binding:"required,oneof=caregiver doctor" example:"doctor"`
}

// updateUserRequest lists the user fields a client may change on their own
// account. Roles change through updateRoleRequest.
type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=6"`
}

type updateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=caregiver doctor" example:"doctor"`
}

// ListUsers godoc
// @Summary      List users
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Param        role query string false "Filter by role"
// @Success      200 {object} util.APIResponse{data=[]model.User}
// @Router       /users [get]
func ListUsers(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}

	q := db.Order("name")
	if role := c.Query("role"); role != "" {
		q = q.Where("role = ?", role)
	}
	var users []model.User
	if err := q.Find(&users).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve users", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Users retrieved", Data: users})
}

// GetUser godoc
// @Summary      Get a user
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Success      200 {object} util.APIResponse{data=model.User}
// @Failure      404 {object} util.APIResponse "User not found"
// @Router       /users/{id} [get]
func GetUser(c *gin.Context) {
	db, ok := ensureDB(c)
	if !ok {
		return
	}
	id, ok := getPathParam(c, "id", "user ID")
	if !ok {
		return
	}
	user, err := firstOrNotFound[model.User](db, "user", "id = ?", id)
	if err != nil {
		util.CallAppError(c, "Failed to retrieve user", err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User retrieved", Data: user})
}

// CreateUser godoc
// @Summary      Create a user
// @Description  Register a caregiver or doctor. The password is stored hashed.
// @Description  Only doctors and the administrator may create doctor accounts.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body createUserRequest true "User"
// @Success      201 {object} util.APIResponse{data=model.User}
// @Failure      400 {object} util.APIResponse "Invalid payload or email already registered"
// @Failure      403 {object} util.APIResponse "Not allowed to create doctors"
// @Router       /users [post]
func CreateUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSONOrRespond(c, &req, "Invalid user payload") {
		return
	}
	db, caller, ok := requestScope(c)
	if !ok {
		return
	}
	if !authorizeOrRespond(c, caller, canAssignRole(caller, req.Role), nil, "role "+req.Role) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := ensureEmailAvailable(db, email, ""); err != nil {
		util.CallAppError(c, "Email already registered", err)
		return
	}
	hash, err := util.HashPassword(req.Password)
	if err != nil {
		util.CallAppError(c, "Failed to hash password", err)
		return
	}

	user := model.User{
		Name:     util.NormalizeName(req.Name),
		Email:    email,
		Password: hash,
		Role:     req.Role,
	}
	if err := db.Create(&user).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create user", Err: err})
		return
	}
	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "User created", Data: user})
}

// UpdateUser godoc
// @Summary      Update my account
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Param        request body updateUserRequest true "Fields to change"
// @Success      200 {object} util.APIResponse{data=model.User}
// @Failure      400 {object} util.APIResponse "Invalid payload"
// @Failure      403 {object} util.APIResponse "Not your account"
// @Failure      404 {object} util.APIResponse "User not found"
// @Router       /users/{id} [put]
func UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if !bindJSONOrRespond(c, &req, "Invalid user payload") {
		return
	}
	db, caller, user, ok := loadUserTarget(c)
	if !ok {
		return
	}
	if !authorizeOrRespond(c, caller, canModifyUser(caller, user), nil, "user "+user.ID) {
		return
	}
	if err := applyUserUpdate(db, &user, req); err != nil {
		util.CallAppError(c, "Failed to update user", err)
		return
	}
	if err := db.Save(&user).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update user", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User updated", Data: user})
}

func applyUserUpdate(db *gorm.DB, user *model.User, req updateUserRequest) error {
	if req.Name != nil {
		name := util.NormalizeName(*req.Name)
		if name == "" {
			return fmt.Errorf("name cannot be empty: %w", util.ErrValidation)
		}
		user.Name = name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if err := ensureEmailAvailable(db, email, user.ID); err != nil {
			return err
		}
		user.Email = email
	}
	if req.Password != nil {
		hash, err := util.HashPassword(*req.Password)
		if err != nil {
			return err
		}
		user.Password = hash
	}
	return nil
}

// loadUserTarget returns the request's db session, the caller and the user
// named by the id path parameter.
func loadUserTarget(c *gin.Context) (*gorm.DB, model.User, model.User, bool) {
	db, caller, ok := requestScope(c)
	if !ok {
		return nil, model.User{}, model.User{}, false
	}
	id, ok := getPathParam(c, "id", "user ID")
	if !ok {
		return nil, model.User{}, model.User{}, false
	}
	user, err := firstOrNotFound[model.User](db, "user", "id = ?", id)
	if err != nil {
		util.CallAppError(c, "Failed to retrieve user", err)
		return nil, model.User{}, model.User{}, false
	}
	return db, caller, user, true
}

// UpdateUserRole godoc
// @Summary      Change a user's role
// @Description  Doctors only
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Param        request body updateRoleRequest true "New role"
// @Success      200 {object} util.APIResponse{data=model.User}
// @Failure      403 {object} util.APIResponse "Insufficient role"
// @Failure      404 {object} util.APIResponse "User not found"
// @Router       /users/{id}/role [put]
func UpdateUserRole(c *gin.Context) {
	var req updateRoleRequest
	if !bindJSONOrRespond(c, &req, "Invalid role payload") {
		return
	}
	db, _, user, ok := loadUserTarget(c)
	if !ok {
		return
	}
	user.Role = req.Role
	if err := db.Model(&user).Update("role", user.Role).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update role", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Role updated", Data: user})
}

// ensureEmailAvailable fails with ErrConflict when another user owns email.
func ensureEmailAvailable(db *gorm.DB, email, exceptID string) error {
	var existing model.User
	err := db.Where("email = ?", email).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID == exceptID {
		return nil
	}
	return fmt.Errorf("email %s already registered: %w", email, util.ErrConflict)
}

// DeleteUser godoc
// @Summary      Delete a user
// @Tags         Users
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Success      204 "User deleted"
// @Failure      403 {object} util.APIResponse "Not allowed to delete this user"
// @Failure      404 {object} util.APIResponse "User not found"
// @Router       /users/{id} [delete]
func DeleteUser(c *gin.Context) {
	db, caller, user, ok := loadUserTarget(c)
	if !ok {
		return
	}
	if !authorizeOrRespond(c, caller, canDeleteUser(caller, user), nil, "user "+user.ID) {
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&model.UserSenior{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		util.CallAppError(c, "Failed to delete user", err)
		return
	}
	util.CallSuccessNoContent(c)
}
