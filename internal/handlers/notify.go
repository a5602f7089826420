package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/gatherhub/gatherhub-backend/internal/platform/apierr"
	"github.com/gatherhub/gatherhub-backend/internal/services"
)

type NotifyHandler struct {
	dispatcher services.NotificationDispatcher
}

func NewNotifyHandler(dispatcher services.NotificationDispatcher) *NotifyHandler {
	return &NotifyHandler{dispatcher: dispatcher}
}

type notifyTarget struct {
	Topic   string   `json:"topic"`
	UserIDs []string `json:"userIds"`
}

type notifyRequest struct {
	Target  notifyTarget   `json:"target"`
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	Payload map[string]any `json:"payload"`
}

// Notify sends an ad-hoc notification to a topic or to a set of users.
// Exactly one target kind must be present.
func (nh *NotifyHandler) Notify(c *gin.Context) {
	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondAPIError(c, apierr.Validation("invalid request body"))
		return
	}

	hasTopic := req.Target.Topic != ""
	hasUsers := len(req.Target.UserIDs) > 0
	if hasTopic == hasUsers {
		RespondAPIError(c, apierr.Validation("target must name either a topic or a list of users"))
		return
	}

	var (
		receipt any
		err     error
	)
	if hasTopic {
		receipt, err = nh.dispatcher.NotifyTopic(c.Request.Context(), req.Target.Topic, req.Title, req.Body, req.Payload)
	} else {
		receipt, err = nh.dispatcher.NotifyUsers(c.Request.Context(), req.Target.UserIDs, req.Title, req.Body, req.Payload)
	}
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"deliveryReceipt": receipt})
}
