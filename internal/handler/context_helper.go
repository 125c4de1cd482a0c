package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/docrequest-portal/internal/middleware"
	"github.com/noah-isme/docrequest-portal/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorID is the operator behind the request, or "" on unauthenticated routes.
func actorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}
