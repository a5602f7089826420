package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/gatherhub/gatherhub-backend/internal/platform/apierr"
	"github.com/gatherhub/gatherhub-backend/internal/realtime"
	"github.com/gatherhub/gatherhub-backend/internal/requestdata"
)

type FeedHandler struct {
	hub *realtime.FeedHub
}

func NewFeedHandler(hub *realtime.FeedHub) *FeedHandler {
	return &FeedHandler{hub: hub}
}

// Stream attaches the caller to the live notification feed over SSE.
// Topics come from repeated ?topic= params; the caller's personal topic
// is always included.
func (fh *FeedHandler) Stream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondAPIError(c, apierr.Unauthorized("missing identity"))
		return
	}

	client := fh.hub.NewFeedClient(rd.UserID)
	fh.hub.Subscribe(client, "user-"+rd.UserID)
	for _, topic := range c.QueryArray("topic") {
		fh.hub.Subscribe(client, topic)
	}
	defer fh.hub.CloseClient(client)

	fh.hub.ServeHTTP(c.Writer, c.Request, client)
}
