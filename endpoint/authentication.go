package endpoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/serenacare/serena-api/middleware"
	"github.com/serenacare/serena-api/model"
	"github.com/serenacare/serena-api/util"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuthHandlers serve login, logout and the current-user lookup.
type AuthHandlers struct {
	Tokens  *util.TokenService
	Revoker *util.TokenRevoker
	Audit   *util.SecurityLogger
	// Limiter, when set, has its counter cleared after a successful login.
	Limiter *middleware.RateLimit
}

// LoginRequest accepts JSON or an OAuth2 password form (username = email).
type LoginRequest struct {
	Email    string `json:"email" form:"username" binding:"required,email" example:"admin@serena.com"`
	Password string `json:"password" form:"password" binding:"required" example:"admin123"`
}

type LoginResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type" example:"bearer"`
	ExpiresAt   time.Time  `json:"expires_at"`
	User        model.User `json:"user"`
}

const invalidLoginMsg = "Incorrect email or password"

type clientInfo struct {
	IP    string
	Agent string
}

// Login godoc
// @Summary      User login
// @Description  Exchange email and password for a bearer token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} util.APIResponse{data=LoginResponse} "Login successful"
// @Failure      400 {object} util.APIResponse "Invalid request payload"
// @Failure      401 {object} util.APIResponse "Incorrect email or password"
// @Failure      429 {object} util.APIResponse "Too many attempts"
// @Router       /auth/login [post]
func (h AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid request payload",
			Err: fmt.Errorf("%s: %w", util.FormatValidationError(err), util.ErrValidation),
		})
		return
	}

	db, ok := ensureDB(c)
	if !ok {
		return
	}
	ci := clientInfo{IP: c.ClientIP(), Agent: c.Request.UserAgent()}

	user, ok := h.loadUserForLogin(c, db, req.Email, ci)
	if !ok {
		return
	}
	if !util.VerifyPassword(req.Password, user.Password) {
		h.Audit.LoginFailure(req.Email, ci.IP, ci.Agent, "invalid password")
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: invalidLoginMsg, Err: util.ErrUnauthenticated})
		return
	}

	issued, err := h.Tokens.Issue(user.Email, user.Role)
	if err != nil {
		h.Audit.LoginFailure(req.Email, ci.IP, ci.Agent, "token generation failed")
		util.CallServerError(c, util.APIErrorParams{Msg: "Could not generate token", Err: err})
		return
	}

	if err := h.Limiter.Reset(c.Request.Context(), ci.IP, c.Request.URL.Path); err != nil {
		logrus.WithError(err).Warn("login rate limit not reset")
	}
	h.Audit.LoginSuccess(user.ID, user.Email, ci.IP, ci.Agent)
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Login successful",
		Data: LoginResponse{
			AccessToken: issued.Token,
			TokenType:   "bearer",
			ExpiresAt:   issued.ExpiresAt,
			User:        user,
		},
	})
}

func (h AuthHandlers) loadUserForLogin(c *gin.Context, db *gorm.DB, email string, ci clientInfo) (model.User, bool) {
	user, err := firstOrNotFound[model.User](db, "user", "email = ?", email)
	if err == nil {
		return user, true
	}
	if errors.Is(err, util.ErrNotFound) {
		h.Audit.LoginFailure(email, ci.IP, ci.Agent, "user not found")
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: invalidLoginMsg, Err: util.ErrUnauthenticated})
		return model.User{}, false
	}
	h.Audit.LoginFailure(email, ci.IP, ci.Agent, "database error")
	util.CallServerError(c, util.APIErrorParams{Msg: "Database error", Err: err})
	return model.User{}, false
}

// Me godoc
// @Summary      Current user
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse{data=model.User}
// @Failure      401 {object} util.APIResponse "Could not validate credentials"
// @Router       /auth/me [get]
func Me(c *gin.Context) {
	user, ok := currentUserOrRespond(c)
	if !ok {
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Current user", Data: user})
}

// Logout godoc
// @Summary      User logout
// @Description  Revoke the bearer token used for this request
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse "Logout successful"
// @Failure      401 {object} util.APIResponse "Could not validate credentials"
// @Router       /auth/logout [delete]
func (h AuthHandlers) Logout(c *gin.Context) {
	user, ok := currentUserOrRespond(c)
	if !ok {
		return
	}
	claims, ok := middleware.GetTokenClaims(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: middleware.CredentialsErrorMsg, Err: util.ErrUnauthenticated})
		return
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := h.Revoker.Revoke(c.Request.Context(), user.Email, claims.ID, expiresAt); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to revoke token")
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to revoke token", Err: err})
		return
	}

	h.Audit.Logout(user.ID, user.Email, c.ClientIP(), c.Request.UserAgent())
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Logout successful",
		Data: gin.H{"revoked": h.Revoker.Enabled()},
	})
}
