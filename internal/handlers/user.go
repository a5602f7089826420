package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/gatherhub/gatherhub-backend/internal/platform/apierr"
	"github.com/gatherhub/gatherhub-backend/internal/services"
)

type UserHandler struct {
	directory services.DirectoryService
	guard     services.AccessGuard
}

func NewUserHandler(directory services.DirectoryService, guard services.AccessGuard) *UserHandler {
	return &UserHandler{directory: directory, guard: guard}
}

type registerRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

func (uh *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}

	user, err := uh.directory.Register(c.Request.Context(), req.Username, req.DisplayName)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"user": user})
}

type loginRequest struct {
	Username string `json:"username"`
	Endpoint string `json:"endpoint"`
}

func (uh *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}

	user, err := uh.directory.RecordLogin(c.Request.Context(), req.Username, req.Endpoint)
	if err != nil {
		RespondAPIError(c, err)
		return
	}

	token, err := uh.guard.IssueToken(user.Username)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"user": user, "token": token})
}
