package router

import (
	"github.com/gin-gonic/gin"
	"github.com/user/cinealert/internal/handler"
)

// RegisterRoutes 注册管理 API 路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.POST("/check", h.ForceCheck)
		api.POST("/movies/import", h.ImportMovies)
		api.POST("/upcoming/publish", h.PublishUpcoming)
		api.GET("/movies", h.ListMovies)
	}
}
