package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gatherhub/gatherhub-backend/internal/handlers"
	"github.com/gatherhub/gatherhub-backend/internal/platform/apierr"
	"github.com/gatherhub/gatherhub-backend/internal/platform/logger"
	"github.com/gatherhub/gatherhub-backend/internal/requestdata"
	"github.com/gatherhub/gatherhub-backend/internal/services"
)

// IdentityHeader is the opaque caller-identity header consumed in plain auth
// mode. Token mode reads the standard Authorization bearer header instead.
const IdentityHeader = "X-User"

type AuthMiddleware struct {
	log   *logger.Logger
	guard services.AccessGuard
}

func NewAuthMiddleware(log *logger.Logger, guard services.AccessGuard) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), guard: guard}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := extractIdentity(c)
		if identity == "" {
			handlers.RespondAPIError(c, apierr.Unauthorized("missing identity"))
			c.Abort()
			return
		}
		userID, err := am.guard.Authenticate(c.Request.Context(), identity)
		if err != nil {
			handlers.RespondAPIError(c, err)
			c.Abort()
			return
		}
		ctx := requestdata.WithRequestData(c.Request.Context(), &requestdata.RequestData{
			UserID:   userID,
			Identity: identity,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractIdentity(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return strings.TrimSpace(c.GetHeader(IdentityHeader))
}
