package api

import (
	"github.com/gin-gonic/gin"

	"github.com/insyd/insyd/internal/handlers"
)

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler) {
	group := api.Group("/users")
	{
		group.GET("", handler.List)
		group.GET("/:id/followers", handler.Followers)
	}
}

func registerFollowRoutes(api *gin.RouterGroup, handler *handlers.FollowHandler) {
	api.POST("/follow", handler.Follow)
	api.DELETE("/follow", handler.Unfollow)
}
