package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gatherhub/gatherhub-backend/internal/platform/apierr"
	"github.com/gatherhub/gatherhub-backend/internal/requestdata"
	"github.com/gatherhub/gatherhub-backend/internal/services"
)

type GatheringHandler struct {
	gatherings services.GatheringService
	guard      services.AccessGuard
}

func NewGatheringHandler(gatherings services.GatheringService, guard services.AccessGuard) *GatheringHandler {
	return &GatheringHandler{gatherings: gatherings, guard: guard}
}

type createGatheringRequest struct {
	Date          string   `json:"date"`
	Time          string   `json:"time"`
	Location      string   `json:"location"`
	ProvidedItems []string `json:"providedItems"`
	InvitedUsers  []string `json:"invitedUsers"`
	HostID        string   `json:"hostId"`
}

func (gh *GatheringHandler) Create(c *gin.Context) {
	var req createGatheringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}

	g, err := gh.gatherings.Create(c.Request.Context(), services.CreateGatheringInput{
		Date:          req.Date,
		Time:          req.Time,
		Location:      req.Location,
		ProvidedItems: req.ProvidedItems,
		InvitedUsers:  req.InvitedUsers,
		CreatedBy:     req.HostID,
	})
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": g.ID})
}

func (gh *GatheringHandler) List(c *gin.Context) {
	status := c.DefaultQuery("status", services.StatusActive)
	gatherings, err := gh.gatherings.Classify(c.Request.Context(), status)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"gatherings": gatherings})
}

func (gh *GatheringHandler) GetByID(c *gin.Context) {
	g, err := gh.gatherings.GetDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"gathering": g})
}

type confirmRequest struct {
	Name          string   `json:"name"`
	SelectedItems []string `json:"selectedItems"`
}

func (gh *GatheringHandler) Confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}

	g, err := gh.gatherings.ConfirmPresence(c.Request.Context(), c.Param("id"), req.Name, req.SelectedItems)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"gathering": g})
}

type declineRequest struct {
	Name string `json:"name"`
}

func (gh *GatheringHandler) Decline(c *gin.Context) {
	var req declineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}

	g, err := gh.gatherings.DeclinePresence(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"gathering": g})
}

func (gh *GatheringHandler) Cancel(c *gin.Context) {
	if err := gh.gatherings.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "gathering cancelled"})
}

// PendingInvites is self-scoped: the authenticated caller may only read
// their own invite list.
func (gh *GatheringHandler) PendingInvites(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondAPIError(c, apierr.Unauthorized("missing identity"))
		return
	}
	requested := c.Param("userId")
	if err := gh.guard.AuthorizeSelf(requested, rd.UserID); err != nil {
		RespondAPIError(c, err)
		return
	}

	invites, err := gh.gatherings.ListPendingInvites(c.Request.Context(), requested)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"invites": invites})
}
