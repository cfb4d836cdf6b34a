package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opsdesk/opsdesk/internal/middleware"
	"github.com/opsdesk/opsdesk/internal/service"
)

// handleLogin verifies credentials and returns a token plus the account.
func (router *APIRouter) handleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	token, user, err := router.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, gin.H{"token": token, "user": user})
}

// handleMe returns the caller's account and role profile. An account with
// no profile row still gets a 200; the profile fields are simply absent.
func (router *APIRouter) handleMe(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		sendError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	profile, err := router.auth.GetProfile(c.Request.Context(), user.ID)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, profile)
}

// handleCreateUser is the admin provisioning endpoint.
func (router *APIRouter) handleCreateUser(c *gin.Context) {
	var req service.CreateUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	profile, err := router.auth.CreateUser(c.Request.Context(), req)
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, profile)
}

func (router *APIRouter) handleListUsers(c *gin.Context) {
	users, err := router.auth.ListUsers(c.Request.Context())
	if err != nil {
		sendServiceError(c, err)
		return
	}
	sendSuccess(c, users)
}
