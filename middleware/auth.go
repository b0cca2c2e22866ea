package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/serenacare/serena-api/model"
	"github.com/serenacare/serena-api/util"
	"github.com/sirupsen/logrus"
)

const (
	currentUserKey = "current_user"
	tokenClaimsKey = "token_claims"

	// CredentialsErrorMsg is the single message sent for every authentication failure.
	CredentialsErrorMsg = "Could not validate credentials"
)

// AuthDeps are the collaborators of the access guard.
type AuthDeps struct {
	Tokens  *util.TokenService
	Revoker *util.TokenRevoker
	Audit   *util.SecurityLogger
}

// RequireBearerToken resolves the bearer token to a stored user and aborts with
// 401 otherwise. All failures look the same to the caller.
func RequireBearerToken(deps AuthDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, claims, reason := authenticate(c, deps)
		if reason != "" {
			deps.Audit.UnauthorizedAccess(c.ClientIP(), c.Request.UserAgent(), c.Request.URL.Path, reason)
			util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: CredentialsErrorMsg, Err: util.ErrUnauthenticated})
			c.Abort()
			return
		}
		c.Set(currentUserKey, user)
		c.Set(tokenClaimsKey, claims)
		c.Next()
	}
}

// authenticate returns a non-empty reason when the request is not authenticated.
func authenticate(c *gin.Context, deps AuthDeps) (model.User, *util.TokenClaims, string) {
	raw, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		return model.User{}, nil, "missing bearer token"
	}

	claims, err := deps.Tokens.Verify(raw)
	if err != nil {
		return model.User{}, nil, "invalid token"
	}

	revoked, err := deps.Revoker.IsRevoked(c.Request.Context(), claims.ID)
	if err != nil {
		logrus.WithError(err).Warn("token revocation check failed")
	}
	if revoked {
		return model.User{}, nil, "revoked token"
	}

	db := GetDB(c)
	if db == nil {
		return model.User{}, nil, "no database session"
	}
	var user model.User
	if err := db.Where("email = ?", claims.Subject).First(&user).Error; err != nil {
		return model.User{}, nil, fmt.Sprintf("unknown subject: %v", err)
	}
	return user, claims, ""
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetCurrentUser returns the user resolved by RequireBearerToken.
func GetCurrentUser(c *gin.Context) (model.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return model.User{}, false
	}
	user, ok := v.(model.User)
	return user, ok
}

// GetTokenClaims returns the verified claims of the request's token.
func GetTokenClaims(c *gin.Context) (*util.TokenClaims, bool) {
	v, ok := c.Get(tokenClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*util.TokenClaims)
	return claims, ok
}

// RequireRole lets through only users whose role is in roles. It must run
// after RequireBearerToken.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetCurrentUser(c)
		if !ok {
			util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: CredentialsErrorMsg, Err: util.ErrUnauthenticated})
			c.Abort()
			return
		}
		if !util.Contains(user.Role, roles) {
			GetAudit(c).ForbiddenAccess(user.ID, c.ClientIP(), c.Request.URL.Path)
			util.CallForbidden(c, util.APIErrorParams{
				Msg: "Insufficient role",
				Err: fmt.Errorf("role %q not allowed: %w", user.Role, util.ErrForbidden),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
