package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kassie406/familyvault-app-sub005/internal/shared/server/middleware"
	"github.com/Kassie406/familyvault-app-sub005/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}

	response := gin.H{
		"userId": userID,
	}
	if isGuest, ok := c.Get("isGuest"); ok {
		response["isGuest"] = isGuest
	}

	respond.JSON(c, http.StatusOK, response)
}
