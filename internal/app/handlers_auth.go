package app

import (
	"net/http"

	"github.com/ak/millboard/internal/app/middleware"
	"github.com/ak/millboard/internal/domain/models"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	User      *models.User `json:"user"`
}

func (a *Application) issueToken(c *gin.Context, user *models.User) (*TokenResponse, error) {
	token, expiresAt, err := middleware.GenerateToken(a.jwtConfig, middleware.TokenSubject{
		UserID:   user.ID.Hex(),
		Username: user.Username,
		Name:     user.Name,
		Role:     string(user.Role),
	})
	if err != nil {
		return nil, err
	}
	middleware.SetTokenCookie(c, a.cookie, token, expiresAt)
	return &TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format("2006-01-02T15:04:05Z"),
		User:      user,
	}, nil
}

func (a *Application) login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := a.services.Users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		a.handleError(c, err)
		return
	}

	resp, err := a.issueToken(c, user)
	if err != nil {
		a.handleError(c, err)
		return
	}
	a.logger.WithUser(user.ID.Hex(), user.Username).Info("User logged in")
	successResponse(c, resp)
}

// refreshToken re-issues a token for a still valid session. The user is
// reloaded so role changes and deactivation take effect.
func (a *Application) refreshToken(c *gin.Context) {
	user, ok := a.currentUser(c)
	if !ok {
		return
	}
	if !user.IsActive {
		middleware.ClearTokenCookie(c, a.cookie)
		errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Account is disabled")
		return
	}

	resp, err := a.issueToken(c, user)
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, resp)
}

func (a *Application) me(c *gin.Context) {
	user, ok := a.currentUser(c)
	if !ok {
		return
	}
	successResponse(c, user)
}

func (a *Application) logout(c *gin.Context) {
	middleware.ClearTokenCookie(c, a.cookie)
	successResponse(c, gin.H{"logged_out": true})
}

func (a *Application) currentUser(c *gin.Context) (*models.User, bool) {
	id, err := primitive.ObjectIDFromHex(middleware.GetUserID(c))
	if err != nil {
		errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return nil, false
	}
	user, err := a.services.Users.GetByID(c.Request.Context(), id)
	if err != nil {
		a.handleError(c, err)
		return nil, false
	}
	return user, true
}
