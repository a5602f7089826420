package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gatherhub/gatherhub-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondAPIError maps a service error onto the wire. Internal causes are
// not echoed to untrusted clients; the stable code plus a generic message go
// out, the cause stays in the logs.
func RespondAPIError(c *gin.Context, err error) {
	ae := apierr.From(err)
	msg := ae.Error()
	if ae.Status >= http.StatusInternalServerError {
		switch ae.Code {
		case apierr.CodeDispatch:
			msg = "notification dispatch failed"
		default:
			msg = "internal error"
		}
	}
	c.JSON(ae.Status, ErrorEnvelope{Error: APIError{Message: msg, Code: ae.Code}})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
