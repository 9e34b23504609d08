package api

import (
	"github.com/gin-gonic/gin"

	"github.com/insyd/insyd/internal/handlers"
)

func registerBlogRoutes(api *gin.RouterGroup, handler *handlers.BlogHandler) {
	group := api.Group("/blogs")
	{
		group.GET("", handler.List)
		group.POST("", handler.Create)
		group.DELETE("/:id", handler.Delete)
		group.POST("/:id/like", handler.Like)
	}
}

func registerJobRoutes(api *gin.RouterGroup, handler *handlers.JobHandler) {
	group := api.Group("/jobs")
	{
		group.GET("", handler.List)
		group.POST("", handler.Create)
		group.DELETE("/:id", handler.Delete)
		group.POST("/:id/apply", handler.Apply)
	}
}
