package api

import (
	"github.com/gin-gonic/gin"

	"github.com/insyd/insyd/internal/handlers"
)

func registerAuthRoutes(api *gin.RouterGroup, handler *handlers.AuthHandler) {
	group := api.Group("/auth")
	group.POST("/register", handler.Register)
}
